// Package admin provides administrative operations on the local directory:
// bulk import of reference entities, channels and subscribers.
package admin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/FormRelay/internal/core"
	"github.com/JonMunkholm/FormRelay/internal/logging"
)

// ImportTimeout is the maximum duration of one directory import.
const ImportTimeout = 30 * time.Second

// ErrInvalidDirectory is returned when an import payload fails validation.
var ErrInvalidDirectory = errors.New("invalid directory import")

// DirectoryStore is the storage the importer writes to.
type DirectoryStore interface {
	ReplaceBoardReferences(ctx context.Context, boardID string, refs []core.Reference) (int64, error)
	UpsertChannel(ctx context.Context, name string, c core.ChannelCapacity) error
	UpsertSubscriber(ctx context.Context, sub core.Subscriber) error
	ReferenceCounts(ctx context.Context) (map[string]int64, error)
}

// ReferenceRow is one imported board entity.
type ReferenceRow struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Code    string   `json:"code,omitempty"`
	TeamIDs []string `json:"team_ids,omitempty"`
}

// ChannelRow is one imported channel capacity. A nil Ceiling is unbounded.
type ChannelRow struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Ceiling   *int     `json:"ceiling"`
	Timeslots []string `json:"timeslots,omitempty"`
}

// SubscriberRow is one imported person.
type SubscriberRow struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Directory is an import payload. Boards maps a board id to the complete
// list of its entities; a listed board is replaced, others are untouched.
type Directory struct {
	Boards      map[string][]ReferenceRow `json:"boards"`
	Channels    []ChannelRow              `json:"channels"`
	Subscribers []SubscriberRow           `json:"subscribers"`
}

// Summary reports what an import wrote.
type Summary struct {
	Boards      map[string]int `json:"boards"`
	Removed     int64          `json:"removed"`
	Channels    int            `json:"channels"`
	Subscribers int            `json:"subscribers"`
}

// Importer loads directory payloads into the store.
type Importer struct {
	Store DirectoryStore
}

type importFn func(ctx context.Context) error

// Import validates d and writes it. Validation failures write nothing.
// Each board is replaced atomically; a failure stops the remaining steps.
func (i *Importer) Import(ctx context.Context, d Directory) (Summary, error) {
	if err := d.Validate(); err != nil {
		return Summary{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	sum := Summary{Boards: make(map[string]int, len(d.Boards))}
	if err := i.runSteps(ctx, []importFn{
		func(ctx context.Context) error { return i.importBoards(ctx, d.Boards, &sum) },
		func(ctx context.Context) error { return i.importChannels(ctx, d.Channels, &sum) },
		func(ctx context.Context) error { return i.importSubscribers(ctx, d.Subscribers, &sum) },
	}); err != nil {
		return sum, err
	}

	logging.FromContext(ctx).Info("directory imported",
		"boards", len(sum.Boards),
		"removed", sum.Removed,
		"channels", sum.Channels,
		"subscribers", sum.Subscribers,
	)
	return sum, nil
}

// Counts returns the number of stored references per board.
func (i *Importer) Counts(ctx context.Context) (map[string]int64, error) {
	return i.Store.ReferenceCounts(ctx)
}

func (i *Importer) runSteps(ctx context.Context, steps []importFn) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (i *Importer) importBoards(ctx context.Context, boards map[string][]ReferenceRow, sum *Summary) error {
	ids := make([]string, 0, len(boards))
	for id := range boards {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, boardID := range ids {
		rows := boards[boardID]
		refs := make([]core.Reference, 0, len(rows))
		for _, r := range rows {
			refs = append(refs, core.Reference{
				ExternalID: r.ID,
				Name:       r.Name,
				Code:       r.Code,
				BoardID:    boardID,
				TeamIDs:    r.TeamIDs,
			})
		}
		removed, err := i.Store.ReplaceBoardReferences(ctx, boardID, refs)
		if err != nil {
			return fmt.Errorf("import board %s: %w", boardID, err)
		}
		sum.Removed += removed
		sum.Boards[boardID] = len(refs)
	}
	return nil
}

func (i *Importer) importChannels(ctx context.Context, rows []ChannelRow, sum *Summary) error {
	for _, r := range rows {
		err := i.Store.UpsertChannel(ctx, r.Name, core.ChannelCapacity{
			ChannelID: r.ID,
			Ceiling:   r.Ceiling,
			Timeslots: r.Timeslots,
		})
		if err != nil {
			return fmt.Errorf("import channel %s: %w", r.ID, err)
		}
		sum.Channels++
	}
	return nil
}

func (i *Importer) importSubscribers(ctx context.Context, rows []SubscriberRow, sum *Summary) error {
	for _, r := range rows {
		err := i.Store.UpsertSubscriber(ctx, core.Subscriber{ID: r.ID, Email: r.Email, Name: r.Name})
		if err != nil {
			return fmt.Errorf("import subscriber %s: %w", r.ID, err)
		}
		sum.Subscribers++
	}
	return nil
}

// Validate checks every row and reports all problems at once.
func (d Directory) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	boardIDs := make([]string, 0, len(d.Boards))
	for id := range d.Boards {
		boardIDs = append(boardIDs, id)
	}
	sort.Strings(boardIDs)

	for _, boardID := range boardIDs {
		if strings.TrimSpace(boardID) == "" {
			add("board id is empty")
			continue
		}
		seen := make(map[string]bool)
		for n, r := range d.Boards[boardID] {
			switch {
			case strings.TrimSpace(r.ID) == "":
				add("board %s row %d: id is empty", boardID, n+1)
			case strings.TrimSpace(r.Name) == "":
				add("board %s entity %s: name is empty", boardID, r.ID)
			case seen[r.ID]:
				add("board %s entity %s: listed twice", boardID, r.ID)
			}
			seen[r.ID] = true
		}
	}
	for n, c := range d.Channels {
		switch {
		case strings.TrimSpace(c.ID) == "":
			add("channel row %d: id is empty", n+1)
		case c.Ceiling != nil && *c.Ceiling < 0:
			add("channel %s: ceiling must be non-negative", c.ID)
		case c.Ceiling != nil && *c.Ceiling > math.MaxInt32:
			add("channel %s: ceiling exceeds %d", c.ID, math.MaxInt32)
		}
	}
	for n, s := range d.Subscribers {
		if strings.TrimSpace(s.ID) == "" || !strings.Contains(s.Email, "@") {
			add("subscriber row %d: needs an id and an email", n+1)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidDirectory, strings.Join(errs, "\n  - "))
	}
	return nil
}
