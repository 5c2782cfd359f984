package core

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeBoard struct {
	nextID    int
	creates   []CreateItemRequest
	updates   []ColumnValues
	uploads   []string
	failBoard map[string]error
	updateErr error
	uploadErr error
}

func (f *fakeBoard) CreateItem(_ context.Context, req CreateItemRequest) (string, error) {
	// The service keeps writing into the parent's column map after create.
	cols := make(ColumnValues, len(req.Columns))
	for k, v := range req.Columns {
		cols[k] = v
	}
	req.Columns = cols
	f.creates = append(f.creates, req)
	if err := f.failBoard[req.BoardID]; err != nil {
		return "", err
	}
	f.nextID++
	return strconv.Itoa(1000 + f.nextID), nil
}

func (f *fakeBoard) UpdateColumns(_ context.Context, _, _ string, columns ColumnValues) error {
	f.updates = append(f.updates, columns)
	return f.updateErr
}

func (f *fakeBoard) UploadFile(_ context.Context, boardID, itemID, columnID, path string) (string, error) {
	f.uploads = append(f.uploads, boardID+"/"+itemID+"/"+columnID+"/"+path)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "f-" + strconv.Itoa(len(f.uploads)), nil
}

type recordingDumper struct {
	prefixes []string
	records  []AuditRecord
}

func (d *recordingDumper) Dump(_ context.Context, prefix string, v any) error {
	d.prefixes = append(d.prefixes, prefix)
	if rec, ok := v.(AuditRecord); ok {
		d.records = append(d.records, rec)
	}
	return nil
}

var fixedNow = time.Date(2024, 12, 3, 15, 4, 5, 0, time.UTC)

type serviceFixture struct {
	svc    *Service
	board  *fakeBoard
	store  *fakeCapacityStore
	dumper *recordingDumper
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dir := newFakeDirectory()
	dir.refs = append(dir.refs, Reference{ExternalID: "501", Name: "Email", BoardID: "channels"})

	f := &serviceFixture{
		board: &fakeBoard{failBoard: map[string]error{}},
		store: &fakeCapacityStore{
			channels: map[string]ChannelCapacity{
				"501": {Ceiling: intPtr(100), Timeslots: hourSlots},
			},
			reservations: map[string][]Reservation{
				slotKey("501", "2024-12-25"): {scheduled("r1", "10:00", 60)},
			},
		},
		dumper: &recordingDumper{},
	}

	svc, err := NewService(Options{
		Directory:        dir,
		Capacity:         f.store,
		Board:            f.board,
		Dumper:           f.dumper,
		DefaultBoardID:   "900",
		ChannelBoard:     "channels",
		DefaultTimeslots: []string{"09:00"},
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func campaignMapping() *MappingSet {
	return &MappingSet{
		FormTitle: "Campaign Request",
		BoardID:   "100",
		GroupID:   "topics",
		Rules: []ColumnRule{
			{ColumnID: "text_title", Path: "title", Type: ColumnText},
			{ColumnID: "numeric_budget", Path: "budget", Type: ColumnNumber},
			{ColumnID: "board_relation_client", Path: "client", Type: ColumnBoardRelation, RelationBoard: "clients"},
			{ColumnID: "people_owner", Path: "owner", Type: ColumnPeople},
			{ColumnID: "status_priority", Path: "priority", Type: ColumnStatus, Default: String("Normal")},
		},
		NameField:        "title",
		DescriptorColumn: "text_descriptor",
		Descriptor: map[DescriptorCategory]DescriptorSource{
			CategoryClient:    {Path: "client", BoardID: "clients"},
			CategoryObjective: {Path: "objective", BoardID: "objectives"},
		},
		TeamColumn: "people_team",
		Demand:     &DemandMapping{ChannelBoard: "channels"},
		Child: &ChildMapping{
			BoardID:        "200",
			ChannelColumn:  "board_relation_channel",
			DateColumn:     "date_send",
			TimeslotColumn: "status_timeslot",
			TimeslotType:   ColumnStatus,
			QuantityColumn: "numeric_quantity",
			ParentColumn:   "board_relation_campaign",
			ChildrenColumn: "board_relation_sends",
		},
	}
}

func campaignSubmission(sends ...Value) Submission {
	if len(sends) == 0 {
		sends = []Value{Object{
			"channel":  String("Email"),
			"date":     String("25/12/2024"),
			"timeslot": String("10:00"),
			"quantity": Number(50),
		}}
	}
	return Submission{
		ID:        "8812",
		CreatedAt: fixedNow,
		FormTitle: "Campaign Request",
		Fields: map[string]Value{
			"title":     String("Winter Sale"),
			"budget":    String("1500"),
			"client":    String("Acme Corp"),
			"owner":     String("ana@example.com"),
			"objective": String("Awareness"),
			"sends":     List(sends),
		},
	}
}

func TestProcessSubmission_Campaign(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.ProcessSubmission(context.Background(), campaignSubmission(), campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if res.Warnings.Len() != 0 {
		t.Fatalf("warnings = %v, want none", res.Warnings.Errors())
	}
	if res.Stage != StageDone {
		t.Errorf("Stage = %q, want %q", res.Stage, StageDone)
	}

	wantDescriptor := "20241203_id-8812_ACM__AWR_____"
	if res.Descriptor != wantDescriptor {
		t.Errorf("Descriptor = %q, want %q", res.Descriptor, wantDescriptor)
	}

	// Parent item.
	if len(f.board.creates) != 3 {
		t.Fatalf("creates = %d, want parent plus two children", len(f.board.creates))
	}
	parent := f.board.creates[0]
	if parent.BoardID != "100" || parent.GroupID != "topics" || parent.Name != "Winter Sale" {
		t.Errorf("parent request = %+v", parent)
	}
	wantParentCols := ColumnValues{
		"text_title":            "Winter Sale",
		"numeric_budget":        1500.0,
		"board_relation_client": map[string]any{"item_ids": []int64{101}},
		"people_owner":          map[string]any{"personsAndTeams": []PersonRef{{ID: 77, Kind: "person"}}},
		"status_priority":       map[string]any{"label": "Normal"},
		"text_descriptor":       wantDescriptor,
		"people_team":           map[string]any{"personsAndTeams": []PersonRef{{ID: 9, Kind: "person"}}},
	}
	if diff := cmp.Diff(wantParentCols, parent.Columns); diff != "" {
		t.Errorf("parent columns mismatch (-want +got):\n%s", diff)
	}
	if res.ItemID != "1001" {
		t.Errorf("ItemID = %q, want 1001", res.ItemID)
	}

	// Allocation: 40 fit at 10:00, the rest spills to 11:00.
	if len(res.Plans) != 1 {
		t.Fatalf("plans = %d, want 1", len(res.Plans))
	}
	wantLines := []PlanLine{{Timeslot: "10:00", Quantity: 40}, {Timeslot: "11:00", Quantity: 10}}
	if diff := cmp.Diff(wantLines, res.Plans[0].Lines); diff != "" {
		t.Errorf("plan lines mismatch (-want +got):\n%s", diff)
	}
	if res.Plans[0].Entry.ChannelID != "501" || res.Plans[0].Entry.Date != "2024-12-25" {
		t.Errorf("entry = %+v, want channel 501 on 2024-12-25", res.Plans[0].Entry)
	}

	// One child per plan line.
	child := f.board.creates[1]
	if child.BoardID != "200" || child.Name != "Email 2024-12-25 10:00" {
		t.Errorf("first child request = %+v", child)
	}
	wantChildCols := ColumnValues{
		"board_relation_channel":  map[string]any{"item_ids": []int64{501}},
		"date_send":               map[string]any{"date": "2024-12-25"},
		"status_timeslot":         map[string]any{"label": "10:00"},
		"numeric_quantity":        40.0,
		"board_relation_campaign": map[string]any{"item_ids": []int64{1001}},
	}
	if diff := cmp.Diff(wantChildCols, child.Columns); diff != "" {
		t.Errorf("child columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1002", "1003"}, res.ChildItemIDs); diff != "" {
		t.Errorf("ChildItemIDs mismatch (-want +got):\n%s", diff)
	}

	// Parent links back to its children.
	wantUpdate := []ColumnValues{{"board_relation_sends": map[string]any{"item_ids": []int64{1002, 1003}}}}
	if diff := cmp.Diff(wantUpdate, f.board.updates); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}

	// One reservation per line, tied to its child item.
	if len(f.store.saved) != 2 {
		t.Fatalf("saved reservations = %d, want 2", len(f.store.saved))
	}
	for i, want := range []struct {
		slot string
		qty  int
		item string
	}{{"10:00", 40, "1002"}, {"11:00", 10, "1003"}} {
		got := f.store.saved[i]
		if got.Timeslot != want.slot || *got.Quantity != want.qty || got.ItemID != want.item {
			t.Errorf("reservation %d = %s/%d/%s, want %s/%d/%s", i, got.Timeslot, *got.Quantity, got.ItemID, want.slot, want.qty, want.item)
		}
		if got.Kind != KindScheduled || got.RequesterID != "8812" || got.ChannelID != "501" {
			t.Errorf("reservation %d = %+v, want scheduled for requester 8812 on 501", i, got)
		}
	}

	if len(f.dumper.records) != 1 || f.dumper.prefixes[0] != "submission-8812" {
		t.Fatalf("audit dumps = %v, want one submission-8812", f.dumper.prefixes)
	}
	if rec := f.dumper.records[0]; rec.ItemID != "1001" || rec.Stage != StageDone {
		t.Errorf("audit record = %+v", rec)
	}
}

func TestProcessSubmission_ParentFailureIsFatal(t *testing.T) {
	f := newServiceFixture(t)
	f.board.failBoard["100"] = errors.New("500 internal error")

	res, err := f.svc.ProcessSubmission(context.Background(), campaignSubmission(), campaignMapping())

	var rce *RemoteCreateError
	if !errors.As(err, &rce) {
		t.Fatalf("ProcessSubmission() error = %v, want *RemoteCreateError", err)
	}
	if rce.BoardID != "100" {
		t.Errorf("BoardID = %q, want 100", rce.BoardID)
	}
	if res == nil || res.Stage != StageCapacityAdjusted {
		t.Errorf("result stage = %v, want %q", res, StageCapacityAdjusted)
	}
	if len(f.board.creates) != 1 {
		t.Errorf("creates = %d, want only the failed parent", len(f.board.creates))
	}
	if len(f.store.saved) != 0 {
		t.Errorf("saved = %d, want no reservations", len(f.store.saved))
	}
	if len(f.dumper.records) != 1 {
		t.Errorf("failed run should still be dumped")
	}
}

func TestProcessSubmission_ChildFailureIsWarning(t *testing.T) {
	f := newServiceFixture(t)
	f.board.failBoard["200"] = errors.New("timeout")

	res, err := f.svc.ProcessSubmission(context.Background(), campaignSubmission(), campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if res.Stage != StageDone {
		t.Errorf("Stage = %q, want %q", res.Stage, StageDone)
	}
	if res.Warnings.Len() != 2 {
		t.Fatalf("warnings = %d, want 2", res.Warnings.Len())
	}
	for _, w := range res.Warnings.Errors() {
		var cce *RemoteChildCreateError
		if !errors.As(w, &cce) {
			t.Errorf("warning %v, want *RemoteChildCreateError", w)
		}
	}
	if len(f.board.updates) != 0 {
		t.Errorf("updates = %d, want no cross reference without children", len(f.board.updates))
	}
	if len(f.store.saved) != 2 {
		t.Fatalf("saved = %d, want 2", len(f.store.saved))
	}
	for _, r := range f.store.saved {
		if r.ItemID != "1001" {
			t.Errorf("reservation item = %q, want parent 1001", r.ItemID)
		}
	}
}

func TestProcessSubmission_ExistingReservationNotPersisted(t *testing.T) {
	f := newServiceFixture(t)
	sub := campaignSubmission(Object{
		"id":       String("r1"),
		"channel":  String("501"),
		"date":     String("2024-12-25"),
		"timeslot": String("10:00"),
		"quantity": String("60"),
	})

	res, err := f.svc.ProcessSubmission(context.Background(), sub, campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	want := []PlanLine{{Timeslot: "10:00", Quantity: 60}}
	if diff := cmp.Diff(want, res.Plans[0].Lines); diff != "" {
		t.Errorf("plan lines mismatch (-want +got):\n%s", diff)
	}
	if len(f.store.saved) != 0 {
		t.Errorf("saved = %d, want 0 for an existing reservation", len(f.store.saved))
	}
	if len(res.ChildItemIDs) != 1 {
		t.Errorf("children = %d, want 1", len(res.ChildItemIDs))
	}
}

func TestProcessSubmission_RelationMissOmitsColumn(t *testing.T) {
	f := newServiceFixture(t)
	sub := campaignSubmission()
	sub.Fields["client"] = String("Globex")
	sub.Fields["owner"] = String("nobody@example.com")

	res, err := f.svc.ProcessSubmission(context.Background(), sub, campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	cols := f.board.creates[0].Columns
	for _, col := range []string{"board_relation_client", "people_owner"} {
		if _, ok := cols[col]; ok {
			t.Errorf("column %s present, want omitted", col)
		}
	}
	// client relation, client descriptor segment, owner email
	if res.Warnings.Len() != 3 {
		t.Errorf("warnings = %d (%v), want 3", res.Warnings.Len(), res.Warnings.Errors())
	}
	for _, w := range res.Warnings.Errors() {
		if !errors.Is(w, ErrValidationSkip) {
			t.Errorf("warning %v does not wrap ErrValidationSkip", w)
		}
	}
	if want := "20241203_id-8812_Globex__AWR_____"; res.Descriptor != want {
		t.Errorf("Descriptor = %q, want %q", res.Descriptor, want)
	}
}

func TestProcessSubmission_Deficit(t *testing.T) {
	f := newServiceFixture(t)
	sub := campaignSubmission(Object{
		"channel_id": String("501"),
		"date":       String("25/12/2024"),
		"time":       String("10:00"),
		"quantity":   Number(1000),
	})

	res, err := f.svc.ProcessSubmission(context.Background(), sub, campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if len(res.Deficits) != 1 {
		t.Fatalf("deficits = %d, want 1", len(res.Deficits))
	}
	if got := res.Deficits[0].Shortfall(); got != 560 {
		t.Errorf("Shortfall() = %d, want 560", got)
	}
	if res.Warnings.Len() != 0 {
		t.Errorf("deficits should not be warnings: %v", res.Warnings.Errors())
	}
	if len(f.store.saved) != 5 {
		t.Errorf("saved = %d, want one per line", len(f.store.saved))
	}
}

func TestProcessSubmission_SnapshotFailureRunsUnconstrained(t *testing.T) {
	f := newServiceFixture(t)
	f.store.err = errors.New("db down")

	res, err := f.svc.ProcessSubmission(context.Background(), campaignSubmission(), campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	want := []PlanLine{{Timeslot: "10:00", Quantity: 50}}
	if diff := cmp.Diff(want, res.Plans[0].Lines); diff != "" {
		t.Errorf("plan lines mismatch (-want +got):\n%s", diff)
	}
	var pe *PersistenceError
	if res.Warnings.Len() != 1 || !errors.As(res.Warnings.Errors()[0], &pe) {
		t.Errorf("warnings = %v, want one *PersistenceError", res.Warnings.Errors())
	}
}

func TestProcessSubmission_BadDemandEntriesSkipped(t *testing.T) {
	f := newServiceFixture(t)
	sub := campaignSubmission(
		String("not an object"),
		Object{"channel": String("501"), "date": String("tomorrow"), "timeslot": String("10:00"), "quantity": Number(5)},
		Object{"channel": String("501"), "date": String("2024-12-25"), "timeslot": String("10:00"), "quantity": Number(-5)},
		Object{"channel": String("Fax"), "date": String("2024-12-25"), "timeslot": String("10:00"), "quantity": Number(5)},
		Object{"channel": String("501"), "date": String("2024-12-25"), "quantity": Number(5)},
		Object{"channel": String("501"), "date": String("2024-12-25"), "timeslot": String("12:00"), "quantity": Number(5)},
	)

	res, err := f.svc.ProcessSubmission(context.Background(), sub, campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if len(res.Plans) != 1 || res.Plans[0].Entry.Timeslot != "12:00" {
		t.Errorf("plans = %+v, want only the 12:00 entry", res.Plans)
	}
	if res.Warnings.Len() != 5 {
		t.Errorf("warnings = %d (%v), want 5", res.Warnings.Len(), res.Warnings.Errors())
	}
}

func TestProcessSubmission_PersistFailureIsWarning(t *testing.T) {
	f := newServiceFixture(t)
	f.store.saveErr = errors.New("duplicate key value")

	res, err := f.svc.ProcessSubmission(context.Background(), campaignSubmission(), campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if res.Warnings.Len() != 2 {
		t.Fatalf("warnings = %d, want 2", res.Warnings.Len())
	}
	if got := MapError(res.Warnings.Errors()[0]).Code; got != "DB003" {
		t.Errorf("warning code = %q, want DB003", got)
	}
}

func TestProcessSubmission_Unmapped(t *testing.T) {
	f := newServiceFixture(t)
	sub := Submission{
		ID:        "8812",
		CreatedAt: fixedNow,
		FormTitle: "Ad hoc",
		Fields: map[string]Value{
			"name":           String("Alice"),
			"quantity_seats": String("3"),
			"date_due":       String("25/12/2024"),
			"file_upload":    List{String("123"), String("https://files.example.com/brief.pdf")},
			"sends": List{Object{
				"channel_id": String("501"),
				"date":       String("2024-12-25"),
				"timeslot":   String("12:00"),
				"quantity":   Number(5),
			}},
		},
	}

	res, err := f.svc.ProcessSubmission(context.Background(), sub, nil)
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	parent := f.board.creates[0]
	if parent.BoardID != "900" {
		t.Errorf("BoardID = %q, want default 900", parent.BoardID)
	}
	if parent.Name != res.Descriptor {
		t.Errorf("Name = %q, want descriptor %q", parent.Name, res.Descriptor)
	}
	wantCols := ColumnValues{
		"name":           "Alice",
		"quantity_seats": 3.0,
		"date_due":       map[string]any{"date": "2024-12-25"},
		"file_upload":    map[string]any{"file_ids": []string{"123"}},
	}
	if diff := cmp.Diff(wantCols, parent.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"900/1001/file_upload/https://files.example.com/brief.pdf"}, f.board.uploads); diff != "" {
		t.Errorf("uploads mismatch (-want +got):\n%s", diff)
	}
	if len(f.board.creates) != 1 {
		t.Errorf("creates = %d, want no children without a child mapping", len(f.board.creates))
	}
	if len(f.store.saved) != 1 || f.store.saved[0].ItemID != "1001" {
		t.Errorf("saved = %+v, want one reservation on the parent", f.store.saved)
	}
}

func TestProcessSubmission_NoBoard(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.defaultBoard = ""

	_, err := f.svc.ProcessSubmission(context.Background(), Submission{ID: "1"}, nil)
	if !errors.Is(err, ErrMappingNotFound) {
		t.Errorf("ProcessSubmission() error = %v, want ErrMappingNotFound", err)
	}
}

func TestProcessSubmission_AssignsIDAndTime(t *testing.T) {
	f := newServiceFixture(t)
	res, err := f.svc.ProcessSubmission(context.Background(), Submission{Fields: map[string]Value{"name": String("x")}}, nil)
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if len(res.SubmissionID) != 36 {
		t.Errorf("SubmissionID = %q, want a uuid", res.SubmissionID)
	}
	if want := "20241203_id-" + res.SubmissionID; res.Descriptor[:len(want)] != want {
		t.Errorf("Descriptor = %q, want prefix %q", res.Descriptor, want)
	}
}

func TestProcessSubmission_UploadFailureIsWarning(t *testing.T) {
	f := newServiceFixture(t)
	f.board.uploadErr = errors.New("413 too large")
	sub := Submission{ID: "1", CreatedAt: fixedNow, Fields: map[string]Value{"attachment": String("https://files.example.com/a.pdf")}}

	res, err := f.svc.ProcessSubmission(context.Background(), sub, nil)
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	var rue *RemoteUpdateError
	if res.Warnings.Len() != 1 || !errors.As(res.Warnings.Errors()[0], &rue) {
		t.Errorf("warnings = %v, want one *RemoteUpdateError", res.Warnings.Errors())
	}
	if _, ok := f.board.creates[0].Columns["attachment"]; ok {
		t.Error("attachment column set without an uploaded asset id")
	}
}

func TestProcessSubmission_LocalFilePathsNotUploaded(t *testing.T) {
	f := newServiceFixture(t)
	sub := Submission{ID: "1", CreatedAt: fixedNow, Fields: map[string]Value{
		"file_upload": List{String("/etc/passwd"), String("file:///etc/shadow"), String("../secrets.env")},
	}}

	res, err := f.svc.ProcessSubmission(context.Background(), sub, nil)
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if len(f.board.uploads) != 0 {
		t.Errorf("uploads = %v, want none", f.board.uploads)
	}
	if res.Warnings.Len() != 3 {
		t.Fatalf("warnings = %d (%v), want 3", res.Warnings.Len(), res.Warnings.Errors())
	}
	for _, w := range res.Warnings.Errors() {
		if !errors.Is(w, ErrValidationSkip) {
			t.Errorf("warning %v, want a validation skip", w)
		}
	}
	if _, ok := f.board.creates[0].Columns["file_upload"]; ok {
		t.Error("file_upload column set from rejected entries")
	}
}

func TestProcessSubmission_QuantityOverflowSkipped(t *testing.T) {
	f := newServiceFixture(t)
	sub := campaignSubmission(
		Object{"channel": String("501"), "date": String("2024-12-25"), "timeslot": String("12:00"), "quantity": Number(1 << 31)},
		Object{"channel": String("501"), "date": String("2024-12-25"), "timeslot": String("12:00"), "quantity": String("9999999999")},
	)

	res, err := f.svc.ProcessSubmission(context.Background(), sub, campaignMapping())
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if len(res.Plans) != 0 {
		t.Errorf("plans = %+v, want none", res.Plans)
	}
	if res.Warnings.Len() != 2 {
		t.Fatalf("warnings = %d (%v), want 2", res.Warnings.Len(), res.Warnings.Errors())
	}
	var ve *ValidationError
	if !errors.As(res.Warnings.Errors()[0], &ve) || ve.Field != "sends.0.quantity" {
		t.Errorf("warning = %v, want a quantity validation error on sends.0", res.Warnings.Errors()[0])
	}
	if len(f.store.saved) != 0 {
		t.Errorf("saved = %+v, want nothing persisted", f.store.saved)
	}
}

func TestPreview_WritesNothing(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.Preview(context.Background(), campaignSubmission(), campaignMapping())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if res.Stage != StageCapacityAdjusted {
		t.Errorf("Stage = %q, want %q", res.Stage, StageCapacityAdjusted)
	}
	if len(res.Plans) != 1 || res.Plans[0].Split() != true {
		t.Errorf("plans = %+v, want one split plan", res.Plans)
	}
	if len(f.board.creates)+len(f.board.updates)+len(f.store.saved)+len(f.dumper.records) != 0 {
		t.Error("Preview wrote remotely or locally")
	}
}

func TestCapacityReport(t *testing.T) {
	f := newServiceFixture(t)

	slots, err := f.svc.CapacityReport(context.Background(), "email", "25/12/2024", "")
	if err != nil {
		t.Fatalf("CapacityReport() error = %v", err)
	}
	if len(slots) != len(hourSlots) {
		t.Fatalf("slots = %d, want %d", len(slots), len(hourSlots))
	}
	if s := slots[2]; s.Timeslot != "10:00" || s.Reserved != 60 || s.Available != 40 {
		t.Errorf("10:00 = %+v, want reserved 60 available 40", s)
	}

	if _, err := f.svc.CapacityReport(context.Background(), "501", "Dec 25", ""); !errors.Is(err, ErrValidationSkip) {
		t.Errorf("invalid date error = %v, want validation error", err)
	}
	if _, err := f.svc.CapacityReport(context.Background(), "Fax", "2024-12-25", ""); !errors.Is(err, ErrValidationSkip) {
		t.Errorf("unknown channel error = %v, want validation error", err)
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	dir, store, board := newFakeDirectory(), &fakeCapacityStore{}, &fakeBoard{}
	for _, opts := range []Options{
		{Capacity: store, Board: board},
		{Directory: dir, Board: board},
		{Directory: dir, Capacity: store},
	} {
		if _, err := NewService(opts); err == nil {
			t.Errorf("NewService(%+v) error = nil", opts)
		}
	}
}
