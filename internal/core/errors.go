package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrValidationSkip marks a field or relation that could not be resolved.
// The field is omitted and processing continues.
var ErrValidationSkip = errors.New("validation skip")

// ErrMappingNotFound is returned when no mapping set is registered for a form.
var ErrMappingNotFound = errors.New("mapping not found")

// ValidationError describes one skipped field or relation.
type ValidationError struct {
	Field   string // submission field or target column
	Value   string // offending value, if any
	Message string
	Err     error // underlying lookup failure, if any
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("skipped")
	if e.Field != "" {
		b.WriteString(" ")
		b.WriteString(e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " %q", e.Value)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidationSkip}
	}
	return []error{ErrValidationSkip, e.Err}
}

// RemoteCreateError is the only fatal failure: the parent item could not
// be created.
type RemoteCreateError struct {
	BoardID string
	Err     error
}

func (e *RemoteCreateError) Error() string {
	return fmt.Sprintf("remote create item on board %s: %v", e.BoardID, e.Err)
}

func (e *RemoteCreateError) Unwrap() error { return e.Err }

// RemoteChildCreateError is a failed child item create. Siblings continue.
type RemoteChildCreateError struct {
	BoardID  string
	Timeslot string
	Err      error
}

func (e *RemoteChildCreateError) Error() string {
	return fmt.Sprintf("remote create child item on board %s (slot %s): %v", e.BoardID, e.Timeslot, e.Err)
}

func (e *RemoteChildCreateError) Unwrap() error { return e.Err }

// RemoteUpdateError is a failed column patch or file upload on an item.
type RemoteUpdateError struct {
	ItemID string
	Op     string
	Err    error
}

func (e *RemoteUpdateError) Error() string {
	return fmt.Sprintf("remote %s on item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *RemoteUpdateError) Unwrap() error { return e.Err }

// PersistenceError is a failed local write. Remote items already created
// are not rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CapacityDeficit reports demand that no eligible slot could absorb.
// It is carried in the result, never returned as the call's error.
type CapacityDeficit struct {
	ChannelID string `json:"channel_id"`
	Date      string `json:"date"`
	Timeslot  string `json:"timeslot"`
	Requested int    `json:"requested"`
	Allocated int    `json:"allocated"`
}

// Shortfall is the unallocated quantity.
func (d CapacityDeficit) Shortfall() int { return d.Requested - d.Allocated }

func (d CapacityDeficit) Error() string {
	return fmt.Sprintf("capacity deficit on channel %s %s %s: requested %d, allocated %d",
		d.ChannelID, d.Date, d.Timeslot, d.Requested, d.Allocated)
}

// Warnings accumulates non-fatal failures of one submission run.
type Warnings struct {
	merr *multierror.Error
}

// Add appends err; nil is ignored.
func (w *Warnings) Add(err error) {
	if err == nil {
		return
	}
	w.merr = multierror.Append(w.merr, err)
}

// Len returns the number of collected warnings.
func (w *Warnings) Len() int {
	if w.merr == nil {
		return 0
	}
	return w.merr.Len()
}

// Errors returns the collected warnings in insertion order.
func (w *Warnings) Errors() []error {
	if w.merr == nil {
		return nil
	}
	return w.merr.WrappedErrors()
}

// ErrorOrNil returns all warnings as one error, or nil when there are none.
func (w *Warnings) ErrorOrNil() error {
	return w.merr.ErrorOrNil()
}
