package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"mapping not found", fmt.Errorf("%w: %q", ErrMappingNotFound, "Survey"), "SUB001"},
		{"busy", ErrTooManySubmissions, "SUB002"},
		{"invalid payload", errors.New("invalid payload: unexpected EOF"), "SUB003"},
		{"cancelled", context.Canceled, "SUB004"},
		{"timeout", fmt.Errorf("create item: %w", context.DeadlineExceeded), "SUB005"},
		{"reference miss", &ValidationError{Field: "client", Value: "Globex", Message: "no matching reference on board 1"}, "REL001"},
		{"subscriber miss", &ValidationError{Field: "owner", Message: "no subscriber with this email"}, "REL002"},
		{"deficit", CapacityDeficit{ChannelID: "email", Requested: 10, Allocated: 5}, "CAP001"},
		{"parent create", &RemoteCreateError{BoardID: "1", Err: errors.New("500")}, "CRM001"},
		{"child create", &RemoteChildCreateError{BoardID: "2", Timeslot: "10:00", Err: errors.New("500")}, "CRM002"},
		{"update", &RemoteUpdateError{ItemID: "9", Op: "update columns", Err: errors.New("500")}, "CRM003"},
		{"unauthorized wins over create", &RemoteCreateError{BoardID: "1", Err: errors.New("401 Unauthorized")}, "CRM004"},
		{"rate limit", &RemoteCreateError{BoardID: "1", Err: errors.New("rate limit exceeded")}, "CRM005"},
		{"duplicate key", &PersistenceError{Op: "reservation", Err: errors.New("duplicate key value violates unique constraint")}, "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB002"},
		{"persist", &PersistenceError{Op: "reservation", Err: errors.New("boom")}, "DB001"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	if got := MapError(nil); got != (UserMessage{}) {
		t.Errorf("MapError(nil) = %+v, want zero", got)
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true")
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestUserError(t *testing.T) {
	base := &RemoteCreateError{BoardID: "1", Err: errors.New("500")}
	ue := NewUserError(base)

	if ue.User.Code != "CRM001" {
		t.Errorf("User.Code = %q, want CRM001", ue.User.Code)
	}
	if !errors.Is(ue, base) {
		t.Error("UserError should unwrap to the technical error")
	}

	wrapped := fmt.Errorf("handler: %w", &UserError{Technical: base, User: UserMessage{Code: "X001", Message: "custom"}})
	if got := MapError(wrapped).Code; got != "X001" {
		t.Errorf("MapError(wrapped UserError).Code = %q, want X001", got)
	}
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManySubmissions)
	if !strings.Contains(got, "(Code: SUB002)") {
		t.Errorf("FormatUserError() = %q, want code SUB002", got)
	}
	if !IsUserFacing(ErrTooManySubmissions) {
		t.Error("IsUserFacing(ErrTooManySubmissions) = false")
	}
	if IsUserFacing(errors.New("odd")) {
		t.Error("IsUserFacing(unknown) = true")
	}
}

func TestValidationError(t *testing.T) {
	boom := errors.New("db down")
	err := &ValidationError{Field: "client", Value: "Globex", Message: "no matching reference", Err: boom}

	want := `skipped client "Globex": no matching reference: db down`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrValidationSkip) || !errors.Is(err, boom) {
		t.Error("ValidationError should match ErrValidationSkip and its cause")
	}

	bare := &ValidationError{Message: "empty reference"}
	if got := bare.Error(); got != "skipped: empty reference" {
		t.Errorf("Error() = %q, want %q", got, "skipped: empty reference")
	}
}

func TestWarnings(t *testing.T) {
	var w Warnings
	if w.Len() != 0 || w.ErrorOrNil() != nil || w.Errors() != nil {
		t.Fatal("zero Warnings should be empty")
	}

	first := errors.New("first")
	second := &RemoteUpdateError{ItemID: "1", Op: "upload file", Err: errors.New("x")}
	w.Add(first)
	w.Add(nil)
	w.Add(second)

	if w.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", w.Len())
	}
	errs := w.Errors()
	if errs[0] != first || errs[1] != error(second) {
		t.Errorf("Errors() = %v, want insertion order", errs)
	}
	var rue *RemoteUpdateError
	if !errors.As(w.ErrorOrNil(), &rue) {
		t.Error("ErrorOrNil() should expose wrapped warnings to errors.As")
	}
}
