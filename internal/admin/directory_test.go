package admin

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

type fakeStore struct {
	boards      map[string][]core.Reference
	channels    map[string]core.ChannelCapacity
	names       map[string]string
	subscribers []core.Subscriber
	existing    map[string]int64
	channelErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		boards:   map[string][]core.Reference{},
		channels: map[string]core.ChannelCapacity{},
		names:    map[string]string{},
		existing: map[string]int64{"11": 4},
	}
}

func (f *fakeStore) ReplaceBoardReferences(_ context.Context, boardID string, refs []core.Reference) (int64, error) {
	f.boards[boardID] = refs
	removed := f.existing[boardID]
	f.existing[boardID] = int64(len(refs))
	return removed, nil
}

func (f *fakeStore) UpsertChannel(_ context.Context, name string, c core.ChannelCapacity) error {
	if f.channelErr != nil {
		return f.channelErr
	}
	f.channels[c.ChannelID] = c
	f.names[c.ChannelID] = name
	return nil
}

func (f *fakeStore) UpsertSubscriber(_ context.Context, sub core.Subscriber) error {
	f.subscribers = append(f.subscribers, sub)
	return nil
}

func (f *fakeStore) ReferenceCounts(context.Context) (map[string]int64, error) {
	return f.existing, nil
}

func intPtr(n int) *int { return &n }

func sampleDirectory() Directory {
	return Directory{
		Boards: map[string][]ReferenceRow{
			"11": {
				{ID: "101", Name: "Acme Corp", Code: "ACM"},
				{ID: "102", Name: "Açaí Brasil", Code: "ACB"},
			},
			"14": {{ID: "301", Name: "Awareness", Code: "AWR", TeamIDs: []string{"9"}}},
		},
		Channels: []ChannelRow{
			{ID: "501", Name: "Email", Ceiling: intPtr(100), Timeslots: []string{"10:00", "11:00"}},
			{ID: "502", Name: "Push"},
		},
		Subscribers: []SubscriberRow{{ID: "77", Email: "ana@example.com", Name: "Ana"}},
	}
}

func TestImport(t *testing.T) {
	store := newFakeStore()
	imp := &Importer{Store: store}

	sum, err := imp.Import(context.Background(), sampleDirectory())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	want := Summary{Boards: map[string]int{"11": 2, "14": 1}, Removed: 4, Channels: 2, Subscribers: 1}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("Import() summary mismatch (-want +got):\n%s", diff)
	}

	wantRefs := []core.Reference{{ExternalID: "301", Name: "Awareness", Code: "AWR", BoardID: "14", TeamIDs: []string{"9"}}}
	if diff := cmp.Diff(wantRefs, store.boards["14"]); diff != "" {
		t.Errorf("board 14 mismatch (-want +got):\n%s", diff)
	}
	if c := store.channels["502"]; c.Ceiling != nil {
		t.Errorf("channel 502 ceiling = %d, want unbounded", *c.Ceiling)
	}
	if store.names["501"] != "Email" {
		t.Errorf("channel 501 name = %q, want Email", store.names["501"])
	}

	counts, err := imp.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts["11"] != 2 {
		t.Errorf("Counts()[11] = %d, want 2", counts["11"])
	}
}

func TestImport_ValidationWritesNothing(t *testing.T) {
	d := sampleDirectory()
	d.Boards["11"] = append(d.Boards["11"], ReferenceRow{ID: "101", Name: "Dup"}, ReferenceRow{ID: "", Name: "NoID"})
	d.Channels = append(d.Channels, ChannelRow{ID: "503", Ceiling: intPtr(-1)}, ChannelRow{ID: "504", Ceiling: intPtr(math.MaxInt32 + 1)})
	d.Subscribers = append(d.Subscribers, SubscriberRow{ID: "78", Email: "not-an-email"})

	store := newFakeStore()
	_, err := (&Importer{Store: store}).Import(context.Background(), d)
	if !errors.Is(err, ErrInvalidDirectory) {
		t.Fatalf("Import() error = %v, want ErrInvalidDirectory", err)
	}
	for _, want := range []string{"entity 101: listed twice", "row 4: id is empty", "channel 503", "channel 504: ceiling exceeds", "subscriber row 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Import() error = %v, want mention of %q", err, want)
		}
	}
	if len(store.boards) != 0 || len(store.channels) != 0 || len(store.subscribers) != 0 {
		t.Error("Import() wrote rows despite validation failure")
	}
}

func TestImport_StopsOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.channelErr = errors.New("db down")

	sum, err := (&Importer{Store: store}).Import(context.Background(), sampleDirectory())
	if err == nil || !strings.Contains(err.Error(), "import channel 501") {
		t.Fatalf("Import() error = %v, want channel failure", err)
	}
	if len(store.subscribers) != 0 {
		t.Error("subscribers imported after channel failure")
	}
	if sum.Boards["11"] != 2 {
		t.Errorf("partial summary boards = %v, want board 11 recorded", sum.Boards)
	}
}
