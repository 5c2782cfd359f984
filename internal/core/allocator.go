package core

// allocator.go places requested send quantities into capacity slots.
//
// Allocation is greedy and deterministic. Each demand entry is planned on
// its own against the same snapshot; entries of one batch do not see each
// other. Two submissions planned concurrently against the same slot can
// both succeed and exceed its ceiling. Callers needing exclusivity must
// serialize on (channel, date, timeslot) themselves.

import (
	"fmt"
	"strings"
)

// Snapshot is the capacity view an allocation runs against.
type Snapshot interface {
	// Ceiling returns the per-slot ceiling of a channel, nil when unbounded.
	Ceiling(channelID string) *int
	// Reservations returns every reservation of a channel on a date.
	Reservations(channelID, date string) []Reservation
	// Timeslots returns the channel's ordered slot labels.
	Timeslots(channelID string) []string
}

// SlotPolicy holds the slot walk rules.
type SlotPolicy struct {
	// Pairs links slots that count as directly adjacent, such as two
	// half-hour slots forming one nominal hour. Lookups are symmetric.
	Pairs map[string]string
}

// NewSlotPolicy builds a policy with symmetric pairs.
func NewSlotPolicy(pairs map[string]string) SlotPolicy {
	sym := make(map[string]string, len(pairs)*2)
	for a, b := range pairs {
		sym[a] = b
		sym[b] = a
	}
	return SlotPolicy{Pairs: sym}
}

// ParseSlotPairs parses "a=b" entries into a pair map.
func ParseSlotPairs(entries []string) (map[string]string, error) {
	pairs := make(map[string]string, len(entries))
	for _, e := range entries {
		a, b, ok := strings.Cut(e, "=")
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if !ok || a == "" || b == "" || a == b {
			return nil, fmt.Errorf("invalid slot pair %q: want from=to", e)
		}
		if prev, dup := pairs[a]; dup && prev != b {
			return nil, fmt.Errorf("slot %q paired twice (%q, %q)", a, prev, b)
		}
		pairs[a] = b
	}
	return pairs, nil
}

// pairedStep returns the paired slot of original when it is a defined slot.
func (p SlotPolicy) pairedStep(slots []string, original string) []string {
	pair, ok := p.Pairs[original]
	if !ok || pair == original || indexOf(slots, pair) < 0 {
		return nil
	}
	return []string{pair}
}

// forwardStep returns the slots after original in list order. There is no
// wraparound, and an original missing from the list has no forward slots.
func forwardStep(slots []string, original string) []string {
	i := indexOf(slots, original)
	if i < 0 {
		return nil
	}
	return slots[i+1:]
}

// Candidates lists the overflow slots for original in visiting order: the
// paired slot first, then forward slots. Each slot appears once.
func (p SlotPolicy) Candidates(slots []string, original string) []string {
	seen := map[string]bool{original: true}
	var out []string
	for _, step := range [][]string{p.pairedStep(slots, original), forwardStep(slots, original)} {
		for _, s := range step {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func indexOf(slots []string, s string) int {
	for i, v := range slots {
		if v == s {
			return i
		}
	}
	return -1
}

// PlanLine is one (timeslot, quantity) placement.
type PlanLine struct {
	Timeslot string `json:"timeslot"`
	Quantity int    `json:"quantity"`
}

// AllocationPlan is the placement of one demand entry. Allocated plus
// Deficit always equals the requested quantity for positive requests.
type AllocationPlan struct {
	Entry   DemandEntry `json:"entry"`
	Lines   []PlanLine  `json:"lines"`
	Deficit int         `json:"deficit"`
}

// Allocated returns the total quantity placed.
func (p AllocationPlan) Allocated() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// Split reports whether the entry spans more than one slot.
func (p AllocationPlan) Split() bool { return len(p.Lines) > 1 }

// Shortfall returns the deficit as a reportable value. ok is false when
// the plan is fully satisfied.
func (p AllocationPlan) Shortfall() (CapacityDeficit, bool) {
	if p.Deficit <= 0 {
		return CapacityDeficit{}, false
	}
	return CapacityDeficit{
		ChannelID: p.Entry.ChannelID,
		Date:      p.Entry.Date,
		Timeslot:  p.Entry.Timeslot,
		Requested: p.Entry.Quantity,
		Allocated: p.Allocated(),
	}, true
}

// Reserved sums the quantity consuming a slot for a requester: every
// scheduled row, plus reservation rows held by other requesters. Rows
// with unknown quantity and the row named by excludeID count as zero.
func Reserved(rs []Reservation, timeslot, requesterID, excludeID string) int {
	total := 0
	for _, r := range rs {
		if r.Timeslot != timeslot || r.Quantity == nil {
			continue
		}
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		switch r.Kind {
		case KindScheduled:
			total += *r.Quantity
		case KindReservation:
			if r.RequesterID != requesterID {
				total += *r.Quantity
			}
		}
	}
	return total
}

// availability is a slot's remaining capacity.
type availability struct {
	unbounded bool
	n         int
}

func (a availability) take(want int) int {
	if a.unbounded || a.n >= want {
		return want
	}
	if a.n < 0 {
		return 0
	}
	return a.n
}

func availableAt(snap Snapshot, e DemandEntry, rs []Reservation, timeslot string) availability {
	ceiling := snap.Ceiling(e.ChannelID)
	if ceiling == nil {
		return availability{unbounded: true}
	}
	n := *ceiling - Reserved(rs, timeslot, e.RequesterID, e.ExistingID)
	if n < 0 {
		n = 0
	}
	return availability{n: n}
}

// AllocateEntry plans one demand entry. Non-positive quantities produce an
// empty plan with no deficit.
func AllocateEntry(e DemandEntry, snap Snapshot, policy SlotPolicy) AllocationPlan {
	plan := AllocationPlan{Entry: e}
	if e.Quantity <= 0 {
		return plan
	}

	rs := snap.Reservations(e.ChannelID, e.Date)
	remaining := e.Quantity

	if got := availableAt(snap, e, rs, e.Timeslot).take(remaining); got > 0 {
		plan.Lines = append(plan.Lines, PlanLine{Timeslot: e.Timeslot, Quantity: got})
		remaining -= got
	}

	if remaining > 0 {
		for _, slot := range policy.Candidates(snap.Timeslots(e.ChannelID), e.Timeslot) {
			got := availableAt(snap, e, rs, slot).take(remaining)
			if got <= 0 {
				continue
			}
			plan.Lines = append(plan.Lines, PlanLine{Timeslot: slot, Quantity: got})
			remaining -= got
			if remaining == 0 {
				break
			}
		}
	}

	plan.Deficit = remaining
	return plan
}

// Allocate plans every entry independently against snap.
func Allocate(entries []DemandEntry, snap Snapshot, policy SlotPolicy) []AllocationPlan {
	plans := make([]AllocationPlan, len(entries))
	for i, e := range entries {
		plans[i] = AllocateEntry(e, snap, policy)
	}
	return plans
}

// SlotStatus is the capacity state of one slot.
type SlotStatus struct {
	Timeslot  string `json:"timeslot"`
	Ceiling   *int   `json:"ceiling"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
	Unbounded bool   `json:"unbounded"`
}

// SlotReport lists every defined slot of a channel on a date as seen by
// requesterID. An empty requester counts every reservation row.
func SlotReport(snap Snapshot, channelID, date, requesterID string) []SlotStatus {
	rs := snap.Reservations(channelID, date)
	ceiling := snap.Ceiling(channelID)
	e := DemandEntry{ChannelID: channelID, Date: date, RequesterID: requesterID}

	slots := snap.Timeslots(channelID)
	out := make([]SlotStatus, 0, len(slots))
	for _, slot := range slots {
		reserved := Reserved(rs, slot, requesterID, "")
		if requesterID == "" {
			reserved = reservedAll(rs, slot)
		}
		a := availableAt(snap, e, rs, slot)
		if requesterID == "" && ceiling != nil {
			a.n = max(*ceiling-reserved, 0)
		}
		out = append(out, SlotStatus{
			Timeslot:  slot,
			Ceiling:   ceiling,
			Reserved:  reserved,
			Available: a.n,
			Unbounded: a.unbounded,
		})
	}
	return out
}

func reservedAll(rs []Reservation, timeslot string) int {
	total := 0
	for _, r := range rs {
		if r.Timeslot == timeslot && r.Quantity != nil {
			total += *r.Quantity
		}
	}
	return total
}
