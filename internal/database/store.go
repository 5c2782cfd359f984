package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

// ErrDuplicate is returned when a write collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// Store is the Postgres-backed directory and capacity store.
type Store struct {
	pool *pgxpool.Pool
	q    *Queries
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

/* ----------------------------------------
	Directory
---------------------------------------- */

func (s *Store) FindReferenceByName(ctx context.Context, boardID, name string) (*core.Reference, error) {
	key := core.FoldName(name)
	if key == "" {
		return nil, nil
	}
	row, err := s.q.GetReferenceByName(ctx, GetReferenceByNameParams{BoardID: boardID, SearchName: key})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reference %q on board %s: %w", name, boardID, err)
	}
	ref := referenceFromRow(row)
	return &ref, nil
}

func (s *Store) SearchReferences(ctx context.Context, boardID, term string, limit int) ([]core.Reference, error) {
	key := core.FoldName(term)
	if key == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.q.SearchReferences(ctx, SearchReferencesParams{
		BoardID:    boardID,
		SearchName: containsPattern(key),
		Limit:      int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search references %q on board %s: %w", term, boardID, err)
	}
	out := make([]core.Reference, 0, len(rows))
	for _, r := range rows {
		out = append(out, referenceFromRow(r))
	}
	return out, nil
}

func (s *Store) FindReferenceByID(ctx context.Context, boardID, externalID string) (*core.Reference, error) {
	row, err := s.q.GetReferenceByExternalID(ctx, GetReferenceByExternalIDParams{
		BoardID:    boardID,
		ExternalID: strings.TrimSpace(externalID),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reference %s on board %s: %w", externalID, boardID, err)
	}
	ref := referenceFromRow(row)
	return &ref, nil
}

func (s *Store) FindSubscriberByEmail(ctx context.Context, email string) (*core.Subscriber, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	row, err := s.q.GetSubscriberByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber %s: %w", email, err)
	}
	return &core.Subscriber{ID: row.ExternalID, Email: row.Email, Name: row.Name}, nil
}

/* ----------------------------------------
	Capacity
---------------------------------------- */

// ChannelCapacity returns the stored capacity of a channel. A channel with
// no row is unbounded and uses the default slot list.
func (s *Store) ChannelCapacity(ctx context.Context, channelID string) (core.ChannelCapacity, error) {
	row, err := s.q.GetChannel(ctx, channelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ChannelCapacity{ChannelID: channelID}, nil
	}
	if err != nil {
		return core.ChannelCapacity{}, fmt.Errorf("get channel %s: %w", channelID, err)
	}
	return core.ChannelCapacity{
		ChannelID: row.ExternalID,
		Ceiling:   fromPgInt4(row.Ceiling),
		Timeslots: row.Timeslots,
	}, nil
}

func (s *Store) ListReservations(ctx context.Context, channelID, date string) ([]core.Reservation, error) {
	d, err := toPgDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.ListReservations(ctx, ListReservationsParams{ChannelID: channelID, SendDate: d})
	if err != nil {
		return nil, fmt.Errorf("list reservations of %s on %s: %w", channelID, date, err)
	}
	out := make([]core.Reservation, 0, len(rows))
	for _, r := range rows {
		out = append(out, reservationFromRow(r))
	}
	return out, nil
}

// SaveReservation inserts r and returns the stored row. An empty ID is
// assigned a fresh UUID.
func (s *Store) SaveReservation(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	id, err := toPgUUID(r.ID)
	if err != nil {
		return core.Reservation{}, err
	}
	d, err := toPgDate(r.Date)
	if err != nil {
		return core.Reservation{}, err
	}
	qty, err := toPgInt4(r.Quantity)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("reservation quantity: %w", err)
	}
	kind := r.Kind
	if kind == "" {
		kind = core.KindReservation
	}

	row, err := s.q.InsertReservation(ctx, InsertReservationParams{
		ID:          id,
		ChannelID:   r.ChannelID,
		SendDate:    d,
		Timeslot:    r.Timeslot,
		Quantity:    qty,
		Kind:        string(kind),
		RequesterID: toPgText(r.RequesterID),
		ItemID:      toPgText(r.ItemID),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Reservation{}, fmt.Errorf("reservation %s: %w", pgUUIDToString(id), ErrDuplicate)
		}
		return core.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}
	return reservationFromRow(row), nil
}

// PruneReservations deletes up to batchSize reservations dated before the
// given ISO date.
func (s *Store) PruneReservations(ctx context.Context, before string, batchSize int) (int64, error) {
	d, err := toPgDate(before)
	if err != nil {
		return 0, err
	}
	n, err := s.q.PruneReservations(ctx, PruneReservationsParams{SendDate: d, Limit: int32(batchSize)})
	if err != nil {
		return 0, fmt.Errorf("prune reservations before %s: %w", before, err)
	}
	return n, nil
}

/* ----------------------------------------
	Directory maintenance
---------------------------------------- */

// ReplaceBoardReferences swaps every reference of a board for refs in one
// transaction. It returns the number of rows removed.
func (s *Store) ReplaceBoardReferences(ctx context.Context, boardID string, refs []core.Reference) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	txQueries := s.q.WithTx(tx)

	removed, err := txQueries.DeleteBoardReferences(ctx, boardID)
	if err != nil {
		return 0, fmt.Errorf("clear board %s: %w", boardID, err)
	}
	for _, ref := range refs {
		ref.BoardID = boardID
		if err := saveReference(ctx, txQueries, ref); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

// UpsertReference inserts or updates one reference.
func (s *Store) UpsertReference(ctx context.Context, ref core.Reference) error {
	return saveReference(ctx, s.q, ref)
}

func saveReference(ctx context.Context, q *Queries, ref core.Reference) error {
	if strings.TrimSpace(ref.ExternalID) == "" || strings.TrimSpace(ref.Name) == "" {
		return fmt.Errorf("reference on board %s needs an id and a name", ref.BoardID)
	}
	id, _ := toPgUUID("")
	teams := ref.TeamIDs
	if teams == nil {
		teams = []string{}
	}
	_, err := q.UpsertReference(ctx, UpsertReferenceParams{
		ID:         id,
		BoardID:    ref.BoardID,
		ExternalID: strings.TrimSpace(ref.ExternalID),
		Name:       strings.TrimSpace(ref.Name),
		SearchName: core.FoldName(ref.Name),
		Code:       toPgText(ref.Code),
		TeamIds:    teams,
	})
	if err != nil {
		return fmt.Errorf("upsert reference %s on board %s: %w", ref.ExternalID, ref.BoardID, err)
	}
	return nil
}

// UpsertChannel inserts or updates a channel's capacity settings.
func (s *Store) UpsertChannel(ctx context.Context, name string, c core.ChannelCapacity) error {
	if c.Ceiling != nil && *c.Ceiling < 0 {
		return fmt.Errorf("channel %s: ceiling must be non-negative", c.ChannelID)
	}
	ceiling, err := toPgInt4(c.Ceiling)
	if err != nil {
		return fmt.Errorf("channel %s ceiling: %w", c.ChannelID, err)
	}
	slots := c.Timeslots
	if slots == nil {
		slots = []string{}
	}
	_, err = s.q.UpsertChannel(ctx, UpsertChannelParams{
		ExternalID: c.ChannelID,
		Name:       strings.TrimSpace(name),
		Ceiling:    ceiling,
		Timeslots:  slots,
	})
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", c.ChannelID, err)
	}
	return nil
}

// UpsertSubscriber inserts or updates a subscriber. An email already owned
// by another subscriber yields ErrDuplicate.
func (s *Store) UpsertSubscriber(ctx context.Context, sub core.Subscriber) error {
	email := normalizeEmail(sub.Email)
	if sub.ID == "" || email == "" {
		return fmt.Errorf("subscriber needs an id and an email")
	}
	_, err := s.q.UpsertSubscriber(ctx, UpsertSubscriberParams{
		ExternalID: sub.ID,
		Email:      email,
		Name:       strings.TrimSpace(sub.Name),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subscriber %s (%s): %w", sub.ID, email, ErrDuplicate)
		}
		return fmt.Errorf("upsert subscriber %s: %w", sub.ID, err)
	}
	return nil
}

// ReferenceCounts returns the number of stored references per board.
func (s *Store) ReferenceCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.q.CountReferencesByBoard(ctx)
	if err != nil {
		return nil, fmt.Errorf("count references: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.BoardID] = r.Total
	}
	return out, nil
}

/* ----------------------------------------
	Row mapping
---------------------------------------- */

func referenceFromRow(r ReferenceEntity) core.Reference {
	return core.Reference{
		ExternalID: r.ExternalID,
		Name:       r.Name,
		Code:       fromPgText(r.Code),
		BoardID:    r.BoardID,
		TeamIDs:    r.TeamIds,
	}
}

func reservationFromRow(r Reservation) core.Reservation {
	return core.Reservation{
		ID:          pgUUIDToString(r.ID),
		ChannelID:   r.ChannelID,
		Date:        fromPgDate(r.SendDate),
		Timeslot:    r.Timeslot,
		Quantity:    fromPgInt4(r.Quantity),
		Kind:        core.ReservationKind(r.Kind),
		RequesterID: fromPgText(r.RequesterID),
		ItemID:      fromPgText(r.ItemID),
		CreatedAt:   fromPgTimestamptz(r.CreatedAt),
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
