package core

import (
	"context"
	"fmt"
)

// MemorySnapshot is a Snapshot held in maps. LoadSnapshot fills one from a
// CapacityStore; tests build them directly.
type MemorySnapshot struct {
	ceilings     map[string]*int
	timeslots    map[string][]string
	reservations map[string][]Reservation
	defaultSlots []string
}

// NewMemorySnapshot creates an empty snapshot. Channels without their own
// slot list use defaultSlots.
func NewMemorySnapshot(defaultSlots []string) *MemorySnapshot {
	return &MemorySnapshot{
		ceilings:     make(map[string]*int),
		timeslots:    make(map[string][]string),
		reservations: make(map[string][]Reservation),
		defaultSlots: defaultSlots,
	}
}

func slotKey(channelID, date string) string { return channelID + "|" + date }

// SetChannel records a channel's ceiling and slot list.
func (m *MemorySnapshot) SetChannel(c ChannelCapacity) {
	m.ceilings[c.ChannelID] = c.Ceiling
	if len(c.Timeslots) > 0 {
		m.timeslots[c.ChannelID] = c.Timeslots
	}
}

// AddReservations appends reservations for a channel and date.
func (m *MemorySnapshot) AddReservations(channelID, date string, rs ...Reservation) {
	k := slotKey(channelID, date)
	m.reservations[k] = append(m.reservations[k], rs...)
}

func (m *MemorySnapshot) Ceiling(channelID string) *int {
	return m.ceilings[channelID]
}

func (m *MemorySnapshot) Reservations(channelID, date string) []Reservation {
	return m.reservations[slotKey(channelID, date)]
}

func (m *MemorySnapshot) Timeslots(channelID string) []string {
	if s, ok := m.timeslots[channelID]; ok {
		return s
	}
	return m.defaultSlots
}

// LoadSnapshot reads the capacity of every channel and date referenced by
// entries. Each channel and each (channel, date) is queried once.
func LoadSnapshot(ctx context.Context, store CapacityStore, entries []DemandEntry, defaultSlots []string) (*MemorySnapshot, error) {
	snap := NewMemorySnapshot(defaultSlots)
	seenChannel := make(map[string]bool)
	seenDay := make(map[string]bool)

	for _, e := range entries {
		if !seenChannel[e.ChannelID] {
			seenChannel[e.ChannelID] = true
			c, err := store.ChannelCapacity(ctx, e.ChannelID)
			if err != nil {
				return nil, fmt.Errorf("load capacity of channel %s: %w", e.ChannelID, err)
			}
			c.ChannelID = e.ChannelID
			snap.SetChannel(c)
		}

		k := slotKey(e.ChannelID, e.Date)
		if seenDay[k] {
			continue
		}
		seenDay[k] = true
		rs, err := store.ListReservations(ctx, e.ChannelID, e.Date)
		if err != nil {
			return nil, fmt.Errorf("load reservations of channel %s on %s: %w", e.ChannelID, e.Date, err)
		}
		snap.AddReservations(e.ChannelID, e.Date, rs...)
	}
	return snap, nil
}
