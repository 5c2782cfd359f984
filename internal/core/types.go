package core

import (
	"context"
	"time"
)

// ColumnType is the semantic type of a target column. It selects the
// formatting rule applied to a submission value.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnNumber
	ColumnCheckbox
	ColumnDate
	ColumnStatus
	ColumnDropdown
	ColumnTags
	ColumnFile
	ColumnBoardRelation
	ColumnTimeline
	ColumnPeople
)

var columnTypeNames = [...]string{
	ColumnText:          "text",
	ColumnNumber:        "number",
	ColumnCheckbox:      "checkbox",
	ColumnDate:          "date",
	ColumnStatus:        "status",
	ColumnDropdown:      "dropdown",
	ColumnTags:          "tags",
	ColumnFile:          "file",
	ColumnBoardRelation: "board_relation",
	ColumnTimeline:      "timeline",
	ColumnPeople:        "people",
}

func (t ColumnType) String() string {
	if int(t) >= 0 && int(t) < len(columnTypeNames) {
		return columnTypeNames[t]
	}
	return "unknown"
}

// Submission is one received form submission. Fields hold values already
// normalized at the transport boundary. Treat it as read-only.
type Submission struct {
	ID        string
	CreatedAt time.Time
	FormTitle string
	Fields    map[string]Value
}

// Field returns the named field, or Null when absent.
func (s Submission) Field(name string) Value {
	if v, ok := s.Fields[name]; ok && v != nil {
		return v
	}
	return Null{}
}

// Reference is a canonical foreign entity (client, channel, format, ...)
// stored in the local directory and mirrored on a remote board.
type Reference struct {
	ExternalID string   // remote item id, numeric-looking
	Name       string   // display name
	Code       string   // short code, optional
	BoardID    string   // board the entity lives on
	TeamIDs    []string // responsible people or teams, optional
}

// Subscriber is a directory person that can be assigned to a people column.
type Subscriber struct {
	ID    string
	Email string
	Name  string
}

// ReservationKind distinguishes committed sends from advisory holds.
type ReservationKind string

const (
	KindScheduled   ReservationKind = "scheduled"
	KindReservation ReservationKind = "reservation"
)

// Reservation is a durable record of quantity consumed at one slot.
// Quantity is nil when the stored value is unknown.
type Reservation struct {
	ID          string          `json:"id"`
	ChannelID   string          `json:"channel_id"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Timeslot    string          `json:"timeslot"`
	Quantity    *int            `json:"quantity"`
	Kind        ReservationKind `json:"kind"`
	RequesterID string          `json:"requester_id,omitempty"`
	ItemID      string          `json:"item_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DemandEntry is one requested placement of sends at a slot.
// ExistingID is set when the entry refers to an already persisted reservation.
type DemandEntry struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
	Date        string `json:"date"` // YYYY-MM-DD
	Timeslot    string `json:"timeslot"`
	Quantity    int    `json:"quantity"`
	RequesterID string `json:"requester_id,omitempty"`
	ExistingID  string `json:"existing_id,omitempty"`
}

// ChannelCapacity is the capacity configuration of one channel.
// Ceiling is nil when the channel is unconstrained.
type ChannelCapacity struct {
	ChannelID string
	Ceiling   *int
	Timeslots []string
}

// Directory resolves names and emails to canonical entities.
// Lookups return (nil, nil) on a miss.
type Directory interface {
	FindReferenceByName(ctx context.Context, boardID, name string) (*Reference, error)
	SearchReferences(ctx context.Context, boardID, term string, limit int) ([]Reference, error)
	FindReferenceByID(ctx context.Context, boardID, externalID string) (*Reference, error)
	FindSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error)
}

// CapacityStore reads and writes slot reservations.
type CapacityStore interface {
	ChannelCapacity(ctx context.Context, channelID string) (ChannelCapacity, error)
	ListReservations(ctx context.Context, channelID, date string) ([]Reservation, error)
	SaveReservation(ctx context.Context, r Reservation) (Reservation, error)
}

// ItemBoard is the remote item-tracking API.
type ItemBoard interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (string, error)
	UpdateColumns(ctx context.Context, boardID, itemID string, columns ColumnValues) error
	UploadFile(ctx context.Context, boardID, itemID, columnID, sourceURL string) (string, error)
}

// CreateItemRequest describes one item to create on a remote board.
type CreateItemRequest struct {
	BoardID string
	GroupID string
	Name    string
	Columns ColumnValues
}

// ColumnValues maps target column ids to wire-ready values.
type ColumnValues map[string]any

// Dumper writes a best-effort local artifact. Prefix names the artifact kind.
type Dumper interface {
	Dump(ctx context.Context, prefix string, v any) error
}
