package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/FormRelay/internal/logging"
	"github.com/JonMunkholm/FormRelay/internal/metrics"
	"github.com/google/uuid"
)

// Stage is a step of the submission pipeline.
type Stage string

const (
	StageReceived              Stage = "received"
	StageColumnsBuilt          Stage = "columns_built"
	StageRelationsResolved     Stage = "relations_resolved"
	StageCapacityAdjusted      Stage = "capacity_adjusted"
	StageParentCreated         Stage = "parent_created"
	StageChildrenCreated       Stage = "children_created"
	StageCrossReferenced       Stage = "cross_referenced"
	StageFilesUploaded         Stage = "files_uploaded"
	StageReservationsPersisted Stage = "reservations_persisted"
	StageDone                  Stage = "done"
)

// Options configures a Service.
type Options struct {
	Directory Directory
	Capacity  CapacityStore
	Board     ItemBoard
	Dumper    Dumper // optional

	// DefaultBoardID and DefaultGroupID receive submissions processed
	// without a mapping set.
	DefaultBoardID string
	DefaultGroupID string

	// ChannelBoard resolves channel names in capacity reports.
	ChannelBoard     string
	DefaultTimeslots []string
	SlotPairs        map[string]string

	MaxConcurrent int
	MaxWait       time.Duration
}

// Service runs submissions through the relay pipeline. It holds no
// per-submission state and is safe for concurrent use.
type Service struct {
	dir          Directory
	capacity     CapacityStore
	board        ItemBoard
	dumper       Dumper
	resolver     *Resolver
	policy       SlotPolicy
	defaultSlots []string
	defaultBoard string
	defaultGroup string
	channelBoard string
	limiter      *SubmissionLimiter
	now          func() time.Time
}

// NewService validates opts and builds a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Directory == nil {
		return nil, errors.New("service: directory is required")
	}
	if opts.Capacity == nil {
		return nil, errors.New("service: capacity store is required")
	}
	if opts.Board == nil {
		return nil, errors.New("service: item board is required")
	}
	dumper := opts.Dumper
	if dumper == nil {
		dumper = NewFileDumper("", false)
	}
	return &Service{
		dir:          opts.Directory,
		capacity:     opts.Capacity,
		board:        opts.Board,
		dumper:       dumper,
		resolver:     NewResolver(opts.Directory),
		policy:       NewSlotPolicy(opts.SlotPairs),
		defaultSlots: opts.DefaultTimeslots,
		defaultBoard: opts.DefaultBoardID,
		defaultGroup: opts.DefaultGroupID,
		channelBoard: opts.ChannelBoard,
		limiter:      NewSubmissionLimiter(opts.MaxConcurrent, opts.MaxWait),
		now:          time.Now,
	}, nil
}

// Limiter returns the concurrency limiter guarding submissions.
func (s *Service) Limiter() *SubmissionLimiter { return s.limiter }

// Resolver returns the service's relation resolver.
func (s *Service) Resolver() *Resolver { return s.resolver }

// Result is the outcome of one submission run. A result is returned even
// when the run fails, carrying whatever was built before the failure.
type Result struct {
	SubmissionID string            `json:"submission_id"`
	ItemID       string            `json:"item_id,omitempty"`
	ChildItemIDs []string          `json:"child_item_ids,omitempty"`
	Descriptor   string            `json:"descriptor"`
	Name         string            `json:"name"`
	Columns      ColumnValues      `json:"columns"`
	Plans        []AllocationPlan  `json:"plans,omitempty"`
	Deficits     []CapacityDeficit `json:"deficits,omitempty"`
	Reservations []Reservation     `json:"reservations,omitempty"`
	Stage        Stage             `json:"stage"`
	Warnings     Warnings          `json:"-"`
}

// ProcessSubmission relays one submission. mapping may be nil, in which case
// every field is classified by name and sent to the default board.
//
// Only a failure to create the parent item is returned as an error
// (*RemoteCreateError). Every other failure is logged and collected in
// Result.Warnings.
func (s *Service) ProcessSubmission(ctx context.Context, sub Submission, mapping *MappingSet) (*Result, error) {
	return s.run(ctx, sub, mapping, false)
}

// Preview builds columns, resolves relations and plans capacity without
// writing anything remotely or locally.
func (s *Service) Preview(ctx context.Context, sub Submission, mapping *MappingSet) (*Result, error) {
	return s.run(ctx, sub, mapping, true)
}

func (s *Service) run(ctx context.Context, sub Submission, mapping *MappingSet, dryRun bool) (*Result, error) {
	start := s.now()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = start
	}

	boardID, groupID := s.defaultBoard, s.defaultGroup
	if mapping != nil {
		boardID, groupID = mapping.BoardID, mapping.GroupID
	}
	if boardID == "" {
		return nil, fmt.Errorf("%w: no board configured for form %q", ErrMappingNotFound, sub.FormTitle)
	}

	p := &pipeline{
		svc:     s,
		sub:     sub,
		mapping: mapping,
		boardID: boardID,
		groupID: groupID,
		res:     &Result{SubmissionID: sub.ID, Columns: ColumnValues{}, Stage: StageReceived},
		log:     logging.WithFields(ctx, "submission_id", sub.ID, "form", sub.FormTitle),
		dryRun:  dryRun,
	}
	p.log.Info("submission received", "fields", len(sub.Fields), "mapped", mapping != nil, "dry_run", dryRun)

	err := p.execute(ctx)
	if dryRun {
		return p.res, err
	}

	outcome := "created"
	if err != nil {
		outcome = "failed"
	}
	metrics.RecordSubmission(outcome, s.now().Sub(start))
	p.dump(ctx)

	if err != nil {
		p.log.Error("submission failed", "stage", p.res.Stage, "error", err)
		return p.res, err
	}
	p.log.Info("submission relayed",
		"item_id", p.res.ItemID,
		"children", len(p.res.ChildItemIDs),
		"reservations", len(p.res.Reservations),
		"deficits", len(p.res.Deficits),
		"warnings", p.res.Warnings.Len(),
	)
	return p.res, nil
}

// CapacityReport lists the slots of a channel on a date. A non-numeric
// channel is resolved by name on the channel board.
func (s *Service) CapacityReport(ctx context.Context, channel, date, requesterID string) ([]SlotStatus, error) {
	iso, ok := parseDate(date)
	if !ok {
		return nil, &ValidationError{Field: "date", Value: date, Message: "invalid date"}
	}
	channelID := channel
	if !isDigits(channel) {
		ref, err := s.resolver.Reference(ctx, "channel", s.channelBoard, channel)
		if err != nil {
			return nil, err
		}
		channelID = ref.ExternalID
	}

	snap, err := LoadSnapshot(ctx, s.capacity, []DemandEntry{{ChannelID: channelID, Date: iso}}, s.defaultSlots)
	if err != nil {
		return nil, err
	}
	return SlotReport(snap, channelID, iso, requesterID), nil
}

// pipeline carries the state of one run.
type pipeline struct {
	svc     *Service
	sub     Submission
	mapping *MappingSet
	boardID string
	groupID string
	res     *Result
	log     *slog.Logger
	dryRun  bool

	pending []pendingColumn
	uploads []pendingUpload
	refs    DescriptorRefs
	entries []DemandEntry
	// lineItems maps plan index and line index to the child item id.
	lineItems map[[2]int]string
}

// pendingColumn is a relation or people column awaiting resolution.
type pendingColumn struct {
	columnID string
	typ      ColumnType
	value    Value
	board    string
}

type pendingUpload struct {
	columnID string
	source   string
}

// warn logs and collects a non-fatal failure.
func (p *pipeline) warn(stage Stage, err error) {
	if err == nil {
		return
	}
	p.res.Warnings.Add(err)
	metrics.RecordWarning(string(stage))
	p.log.Warn("submission step degraded", "stage", stage, "error", err)
}

func (p *pipeline) execute(ctx context.Context) error {
	p.buildColumns()
	p.res.Stage = StageColumnsBuilt

	p.resolveRelations(ctx)
	p.res.Stage = StageRelationsResolved

	if p.adjustCapacity(ctx) {
		p.res.Stage = StageCapacityAdjusted
	}
	if p.dryRun {
		return nil
	}

	if err := p.createParent(ctx); err != nil {
		return err
	}
	p.res.Stage = StageParentCreated

	if p.createChildren(ctx) {
		p.res.Stage = StageChildrenCreated
	}

	p.crossReference(ctx)
	p.res.Stage = StageCrossReferenced

	p.uploadFiles(ctx)
	p.res.Stage = StageFilesUploaded

	p.persistReservations(ctx)
	p.res.Stage = StageReservationsPersisted

	p.res.Stage = StageDone
	return nil
}

// buildColumns formats every plain column and queues relation and people
// columns for the resolution stage.
func (p *pipeline) buildColumns() {
	if p.mapping == nil {
		demandField := p.mapping.DemandField()
		for _, name := range sortedKeys(Object(p.sub.Fields)) {
			if name == demandField {
				continue
			}
			p.addColumn(name, Classify(name), p.sub.Fields[name], "")
		}
		return
	}

	root := Object(p.sub.Fields)
	for _, rule := range p.mapping.Rules {
		v, ok := Lookup(root, rule.path())
		if !ok || IsBlank(v) {
			if rule.Default == nil {
				continue
			}
			v = rule.Default
		}
		if rule.Transform != nil {
			v = rule.Transform(v)
		}
		p.addColumn(rule.ColumnID, rule.Type, v, rule.RelationBoard)
	}
}

func (p *pipeline) addColumn(columnID string, t ColumnType, v Value, board string) {
	switch t {
	case ColumnBoardRelation, ColumnPeople:
		p.pending = append(p.pending, pendingColumn{columnID: columnID, typ: t, value: v, board: board})
		return
	case ColumnFile:
		v = p.splitUploads(columnID, v)
	}
	if out, ok := Format(v, t); ok {
		p.res.Columns[columnID] = out
	} else if !IsBlank(v) {
		p.warn(StageColumnsBuilt, &ValidationError{
			Field: columnID, Value: describeValue(v), Message: "value does not fit column type " + t.String(),
		})
	}
}

// splitUploads keeps numeric asset ids in the column value and queues http(s)
// URLs for upload once the item exists. Anything else is skipped with a
// warning; local paths never reach the uploader.
func (p *pipeline) splitUploads(columnID string, v Value) Value {
	var ids []string
	for _, tok := range nonBlank(NormalizeToStrings(v)) {
		switch {
		case isDigits(tok):
			ids = append(ids, tok)
		case isRemoteFile(tok):
			p.uploads = append(p.uploads, pendingUpload{columnID: columnID, source: tok})
		default:
			p.warn(StageColumnsBuilt, &ValidationError{Field: columnID, Value: tok, Message: "file entry must be an asset id or an http(s) URL"})
		}
	}
	if len(ids) == 0 {
		return Null{}
	}
	return idList(ids)
}

func isRemoteFile(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (p *pipeline) resolveRelations(ctx context.Context) {
	r := p.svc.resolver
	for _, pc := range p.pending {
		value := pc.value
		switch pc.typ {
		case ColumnBoardRelation:
			if pc.board != "" {
				ids, skipped := r.References(ctx, pc.columnID, pc.board, NormalizeToStrings(pc.value))
				for _, err := range skipped {
					p.warn(StageRelationsResolved, err)
				}
				value = idList(ids)
			}
		case ColumnPeople:
			if _, shaped := pc.value.(Object); !shaped {
				ids, skipped := r.People(ctx, pc.columnID, NormalizeToStrings(pc.value))
				for _, err := range skipped {
					p.warn(StageRelationsResolved, err)
				}
				value = idList(ids)
			}
		}
		if out, ok := Format(value, pc.typ); ok {
			p.res.Columns[pc.columnID] = out
		}
	}

	var sources map[DescriptorCategory]DescriptorSource
	if p.mapping != nil {
		sources = p.mapping.Descriptor
	}
	refs, skipped := ResolveDescriptorRefs(ctx, r, p.sub, sources)
	for _, err := range skipped {
		p.warn(StageRelationsResolved, err)
	}
	p.refs = refs
	p.res.Descriptor = BuildDescriptor(p.sub, refs)
	p.res.Name = p.itemName()

	if p.mapping == nil {
		return
	}
	if p.mapping.DescriptorColumn != "" {
		p.res.Columns[p.mapping.DescriptorColumn] = p.res.Descriptor
	}
	if p.mapping.TeamColumn != "" {
		if team := refs[CategoryObjective].TeamIDs; len(team) > 0 {
			if out, ok := Format(idList(team), ColumnPeople); ok {
				p.res.Columns[p.mapping.TeamColumn] = out
			}
		}
	}
}

// itemName returns the mapped name field, falling back to the descriptor.
func (p *pipeline) itemName() string {
	if p.mapping != nil && p.mapping.NameField != "" {
		if v, ok := Lookup(Object(p.sub.Fields), p.mapping.NameField); ok {
			if s, ok := v.(Scalar); ok && !IsBlank(s) {
				return s.Text()
			}
		}
	}
	return p.res.Descriptor
}

// adjustCapacity extracts demand entries and plans them. It reports
// whether the submission carried any demand.
func (p *pipeline) adjustCapacity(ctx context.Context) bool {
	list, ok := p.sub.Field(p.mapping.DemandField()).(List)
	if !ok || len(list) == 0 {
		return false
	}

	p.entries = p.extractDemand(ctx, list)
	if len(p.entries) == 0 {
		return false
	}

	snap, err := LoadSnapshot(ctx, p.svc.capacity, p.entries, p.svc.defaultSlots)
	if err != nil {
		// Without a snapshot nothing constrains the entries.
		p.warn(StageCapacityAdjusted, &PersistenceError{Op: "load capacity", Err: err})
		snap = NewMemorySnapshot(p.svc.defaultSlots)
	}

	p.res.Plans = Allocate(p.entries, snap, p.svc.policy)
	for _, plan := range p.res.Plans {
		metrics.RecordAllocation(plan.Entry.ChannelID, plan.Split(), plan.Deficit)
		if plan.Split() {
			p.log.Info("demand split across timeslots",
				"channel", plan.Entry.ChannelID, "date", plan.Entry.Date,
				"timeslot", plan.Entry.Timeslot, "lines", len(plan.Lines))
		}
		if d, short := plan.Shortfall(); short {
			p.res.Deficits = append(p.res.Deficits, d)
			p.log.Warn("capacity deficit", "channel", d.ChannelID, "date", d.Date,
				"timeslot", d.Timeslot, "requested", d.Requested, "allocated", d.Allocated)
		}
	}
	return true
}

// extractDemand reads demand entries from the demand list. Entries that
// cannot be read are skipped with a warning.
func (p *pipeline) extractDemand(ctx context.Context, list List) []DemandEntry {
	requester := p.sub.ID
	channelBoard := ""
	if p.mapping != nil && p.mapping.Demand != nil {
		channelBoard = p.mapping.Demand.ChannelBoard
		if path := p.mapping.Demand.RequesterField; path != "" {
			if v, ok := Lookup(Object(p.sub.Fields), path); ok {
				if s, ok := v.(Scalar); ok && !IsBlank(s) {
					requester = s.Text()
				}
			}
		}
	}

	entries := make([]DemandEntry, 0, len(list))
	for i, item := range list {
		field := fmt.Sprintf("%s.%d", p.mapping.DemandField(), i)
		obj, ok := item.(Object)
		if !ok {
			p.warn(StageCapacityAdjusted, &ValidationError{Field: field, Message: "demand entry is not an object"})
			continue
		}
		e, err := p.demandEntry(ctx, field, obj, channelBoard, requester)
		if err != nil {
			p.warn(StageCapacityAdjusted, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (p *pipeline) demandEntry(ctx context.Context, field string, obj Object, channelBoard, requester string) (DemandEntry, error) {
	text := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := obj[k].(Scalar); ok && !IsBlank(s) {
				return s.Text()
			}
		}
		return ""
	}

	e := DemandEntry{RequesterID: requester, ExistingID: text("id")}
	if r := text("requester"); r != "" {
		e.RequesterID = r
	}

	channel := text("channel_id", "channel")
	switch {
	case channel == "":
		return e, &ValidationError{Field: field + ".channel", Message: "missing channel"}
	case isDigits(channel):
		e.ChannelID = channel
	case channelBoard == "":
		return e, &ValidationError{Field: field + ".channel", Value: channel, Message: "channel is not an id and no channel board is configured"}
	default:
		ref, err := p.svc.resolver.Reference(ctx, field+".channel", channelBoard, channel)
		if err != nil {
			return e, err
		}
		e.ChannelID, e.ChannelName = ref.ExternalID, ref.Name
	}

	date, ok := parseDate(text("date"))
	if !ok {
		return e, &ValidationError{Field: field + ".date", Value: text("date"), Message: "invalid date"}
	}
	e.Date = date

	e.Timeslot = text("timeslot", "time")
	if e.Timeslot == "" {
		return e, &ValidationError{Field: field + ".timeslot", Message: "missing timeslot"}
	}

	q, ok := obj["quantity"].(Scalar)
	n, valid := scalarInt(q)
	if !ok || !valid || n <= 0 {
		return e, &ValidationError{Field: field + ".quantity", Value: q.Text(), Message: "quantity must be a positive integer"}
	}
	if n > math.MaxInt32 {
		return e, &ValidationError{Field: field + ".quantity", Value: q.Text(), Message: "quantity exceeds the storable maximum"}
	}
	e.Quantity = int(n)
	return e, nil
}

func (p *pipeline) createParent(ctx context.Context) error {
	itemID, err := p.svc.board.CreateItem(ctx, CreateItemRequest{
		BoardID: p.boardID,
		GroupID: p.groupID,
		Name:    p.res.Name,
		Columns: p.res.Columns,
	})
	metrics.RecordRemoteCall("create_item", err)
	if err != nil {
		return &RemoteCreateError{BoardID: p.boardID, Err: err}
	}
	p.res.ItemID = itemID
	p.log.Info("parent item created", "item_id", itemID, "board_id", p.boardID, "columns", len(p.res.Columns))
	return nil
}

// createChildren creates one child item per plan line. It reports whether
// the mapping asked for children.
func (p *pipeline) createChildren(ctx context.Context) bool {
	if p.mapping == nil || p.mapping.Child == nil || len(p.res.Plans) == 0 {
		return false
	}
	child := p.mapping.Child
	p.lineItems = make(map[[2]int]string)

	for i, plan := range p.res.Plans {
		for j, line := range plan.Lines {
			cols := ColumnValues{}
			set := func(col string, v Value, t ColumnType) {
				if col == "" {
					return
				}
				if out, ok := Format(v, t); ok {
					cols[col] = out
				}
			}
			set(child.ChannelColumn, idList([]string{plan.Entry.ChannelID}), ColumnBoardRelation)
			set(child.DateColumn, String(plan.Entry.Date), ColumnDate)
			set(child.TimeslotColumn, String(line.Timeslot), child.TimeslotType)
			set(child.QuantityColumn, Number(float64(line.Quantity)), ColumnNumber)
			set(child.ParentColumn, idList([]string{p.res.ItemID}), ColumnBoardRelation)

			name := fmt.Sprintf("%s %s %s", channelLabel(plan.Entry), plan.Entry.Date, line.Timeslot)
			itemID, err := p.svc.board.CreateItem(ctx, CreateItemRequest{
				BoardID: child.BoardID,
				GroupID: child.GroupID,
				Name:    name,
				Columns: cols,
			})
			metrics.RecordRemoteCall("create_child_item", err)
			if err != nil {
				p.warn(StageChildrenCreated, &RemoteChildCreateError{BoardID: child.BoardID, Timeslot: line.Timeslot, Err: err})
				continue
			}
			p.lineItems[[2]int{i, j}] = itemID
			p.res.ChildItemIDs = append(p.res.ChildItemIDs, itemID)
		}
	}
	return true
}

func channelLabel(e DemandEntry) string {
	if e.ChannelName != "" {
		return e.ChannelName
	}
	return e.ChannelID
}

func (p *pipeline) crossReference(ctx context.Context) {
	if p.mapping == nil || p.mapping.Child == nil || p.mapping.Child.ChildrenColumn == "" || len(p.res.ChildItemIDs) == 0 {
		return
	}
	out, ok := Format(idList(p.res.ChildItemIDs), ColumnBoardRelation)
	if !ok {
		return
	}
	cols := ColumnValues{p.mapping.Child.ChildrenColumn: out}
	err := p.svc.board.UpdateColumns(ctx, p.boardID, p.res.ItemID, cols)
	metrics.RecordRemoteCall("update_columns", err)
	if err != nil {
		p.warn(StageCrossReferenced, &RemoteUpdateError{ItemID: p.res.ItemID, Op: "update columns", Err: err})
		return
	}
	p.res.Columns[p.mapping.Child.ChildrenColumn] = out
}

func (p *pipeline) uploadFiles(ctx context.Context) {
	for _, u := range p.uploads {
		fileID, err := p.svc.board.UploadFile(ctx, p.boardID, p.res.ItemID, u.columnID, u.source)
		metrics.RecordRemoteCall("upload_file", err)
		if err != nil {
			p.warn(StageFilesUploaded, &RemoteUpdateError{ItemID: p.res.ItemID, Op: "upload file " + u.source, Err: err})
			continue
		}
		p.log.Debug("file uploaded", "column", u.columnID, "file_id", fileID)
	}
}

// persistReservations stores one reservation per plan line of every entry
// that did not already carry a reservation id.
func (p *pipeline) persistReservations(ctx context.Context) {
	kind := p.mapping.Kind()
	for i, plan := range p.res.Plans {
		if plan.Entry.ExistingID != "" {
			continue
		}
		for j, line := range plan.Lines {
			itemID := p.res.ItemID
			if id, ok := p.lineItems[[2]int{i, j}]; ok {
				itemID = id
			}
			q := line.Quantity
			saved, err := p.svc.capacity.SaveReservation(ctx, Reservation{
				ID:          uuid.NewString(),
				ChannelID:   plan.Entry.ChannelID,
				Date:        plan.Entry.Date,
				Timeslot:    line.Timeslot,
				Quantity:    &q,
				Kind:        kind,
				RequesterID: plan.Entry.RequesterID,
				ItemID:      itemID,
				CreatedAt:   p.svc.now(),
			})
			if err != nil {
				p.warn(StageReservationsPersisted, &PersistenceError{Op: "reservation", Err: err})
				continue
			}
			p.res.Reservations = append(p.res.Reservations, saved)
		}
	}
}

// dump writes the audit record. Failures are warnings.
func (p *pipeline) dump(ctx context.Context) {
	meta := RequestMetaFromContext(ctx)
	rec := AuditRecord{
		SubmissionID: p.sub.ID,
		FormTitle:    p.sub.FormTitle,
		Descriptor:   p.res.Descriptor,
		ItemID:       p.res.ItemID,
		ChildItemIDs: p.res.ChildItemIDs,
		Columns:      p.res.Columns,
		Plans:        p.res.Plans,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Stage:        p.res.Stage,
		CreatedAt:    p.svc.now(),
	}
	for _, w := range p.res.Warnings.Errors() {
		rec.Warnings = append(rec.Warnings, w.Error())
	}
	if err := p.svc.dumper.Dump(ctx, "submission-"+p.sub.ID, rec); err != nil {
		p.warn(StageDone, &PersistenceError{Op: "audit dump", Err: err})
	}
}

// describeValue renders a value for log messages.
func describeValue(v Value) string {
	switch t := v.(type) {
	case Scalar:
		return t.Text()
	case List:
		return fmt.Sprintf("list(%d)", len(t))
	case Object:
		return fmt.Sprintf("object(%d)", len(t))
	}
	return ""
}
