package core

import (
	"fmt"
	"strings"
)

// DefaultDemandField is the submission list holding demand entries.
const DefaultDemandField = "sends"

// TransformFunc rewrites a value before formatting. It must be pure.
type TransformFunc func(Value) Value

// ColumnRule writes one target column from a submission path.
type ColumnRule struct {
	ColumnID  string
	Path      string // dotted path into the submission fields; defaults to ColumnID
	Default   Value  // used when the path is missing or blank
	Transform TransformFunc
	Type      ColumnType

	// RelationBoard is the board names are resolved against for
	// ColumnBoardRelation rules.
	RelationBoard string
}

func (r ColumnRule) path() string {
	if r.Path != "" {
		return r.Path
	}
	return r.ColumnID
}

// DemandMapping says where demand entries live and how to read them.
type DemandMapping struct {
	Field          string // list field; DefaultDemandField when empty
	ChannelBoard   string // board channel names resolve against
	RequesterField string // submission path of the requester id; the submission id when empty
}

// ChildMapping describes the child item created for each plan line.
type ChildMapping struct {
	BoardID        string
	GroupID        string
	ChannelColumn  string
	DateColumn     string
	TimeslotColumn string
	TimeslotType   ColumnType
	QuantityColumn string
	ParentColumn   string // relation on the child pointing at the parent
	ChildrenColumn string // relation on the parent listing the children
}

// MappingSet is the immutable configuration for one form.
type MappingSet struct {
	FormTitle string
	BoardID   string
	GroupID   string
	Rules     []ColumnRule

	NameField        string // submission path of the item name; the descriptor when empty
	DescriptorColumn string // column receiving the composite descriptor
	Descriptor       map[DescriptorCategory]DescriptorSource
	TeamColumn       string // people column filled from the objective's team

	Demand          *DemandMapping
	Child           *ChildMapping
	ReservationKind ReservationKind // KindScheduled when empty
}

// DemandField returns the list field holding demand entries.
func (m *MappingSet) DemandField() string {
	if m != nil && m.Demand != nil && m.Demand.Field != "" {
		return m.Demand.Field
	}
	return DefaultDemandField
}

// Kind returns the reservation kind written for this form.
func (m *MappingSet) Kind() ReservationKind {
	if m == nil || m.ReservationKind == "" {
		return KindScheduled
	}
	return m.ReservationKind
}

// Validate checks that a mapping set is usable and that no two writers
// target the same column.
func (m *MappingSet) Validate() error {
	var errs []string

	if strings.TrimSpace(m.FormTitle) == "" {
		errs = append(errs, "form title is required")
	}
	if m.BoardID == "" {
		errs = append(errs, "board id is required")
	}

	owners := make(map[string]string)
	claim := func(col, owner string) {
		if col == "" {
			return
		}
		if prev, ok := owners[col]; ok {
			errs = append(errs, fmt.Sprintf("column %q written by both %s and %s", col, prev, owner))
			return
		}
		owners[col] = owner
	}

	for i, r := range m.Rules {
		if r.ColumnID == "" {
			errs = append(errs, fmt.Sprintf("rule %d has no column id", i))
			continue
		}
		if r.Type == ColumnBoardRelation && r.RelationBoard == "" {
			errs = append(errs, fmt.Sprintf("rule %q is a board relation without a relation board", r.ColumnID))
		}
		claim(r.ColumnID, fmt.Sprintf("rule %d", i))
	}
	claim(m.DescriptorColumn, "descriptor")
	claim(m.TeamColumn, "team")
	if m.Child != nil {
		claim(m.Child.ChildrenColumn, "children link")
	}

	switch m.ReservationKind {
	case "", KindScheduled, KindReservation:
	default:
		errs = append(errs, fmt.Sprintf("unknown reservation kind %q", m.ReservationKind))
	}

	if m.Child != nil {
		if m.Child.BoardID == "" {
			errs = append(errs, "child mapping needs a board id")
		}
		if m.Demand == nil {
			errs = append(errs, "child mapping needs a demand mapping")
		}
	}
	if m.Demand != nil && m.Demand.ChannelBoard == "" {
		errs = append(errs, "demand mapping needs a channel board")
	}

	if len(errs) > 0 {
		return fmt.Errorf("mapping %q invalid:\n  - %s", m.FormTitle, strings.Join(errs, "\n  - "))
	}
	return nil
}
