package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeDirectory matches names by FoldName and searches by prefix.
type fakeDirectory struct {
	refs        []Reference
	subscribers map[string]Subscriber
	err         error

	exactCalls  int
	searchCalls int
	idCalls     int
}

func (f *fakeDirectory) FindReferenceByName(_ context.Context, boardID, name string) (*Reference, error) {
	f.exactCalls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.refs {
		r := f.refs[i]
		if r.BoardID == boardID && FoldName(r.Name) == FoldName(name) {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) SearchReferences(_ context.Context, boardID, term string, limit int) ([]Reference, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []Reference
	for _, r := range f.refs {
		if r.BoardID == boardID && strings.Contains(FoldName(r.Name), FoldName(term)) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDirectory) FindReferenceByID(_ context.Context, boardID, id string) (*Reference, error) {
	f.idCalls++
	for i := range f.refs {
		r := f.refs[i]
		if r.BoardID == boardID && r.ExternalID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) FindSubscriberByEmail(_ context.Context, email string) (*Subscriber, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.subscribers[email]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		refs: []Reference{
			{ExternalID: "101", Name: "Acme Corp", Code: "ACM", BoardID: "clients"},
			{ExternalID: "102", Name: "Açaí Brasil", Code: "ACB", BoardID: "clients"},
			{ExternalID: "201", Name: "Newsletter", Code: "NWS", BoardID: "formats"},
			{ExternalID: "301", Name: "Awareness", Code: "AWR", BoardID: "objectives", TeamIDs: []string{"9"}},
		},
		subscribers: map[string]Subscriber{
			"ana@example.com": {ID: "77", Email: "ana@example.com", Name: "Ana"},
		},
	}
}

func TestResolveReference_ExactSkipsFuzzy(t *testing.T) {
	fuzzyCalled := false
	exact := func(context.Context, string) (*Reference, error) {
		return &Reference{ExternalID: "1"}, nil
	}
	fuzzy := func(context.Context, string) (*Reference, error) {
		fuzzyCalled = true
		return nil, nil
	}

	ref, err := ResolveReference(context.Background(), "x", exact, fuzzy)
	if err != nil || ref == nil || ref.ExternalID != "1" {
		t.Fatalf("ResolveReference() = %v, %v, want id 1", ref, err)
	}
	if fuzzyCalled {
		t.Error("fuzzy lookup called after exact match")
	}
}

func TestResolveReference_ErrorFallsThrough(t *testing.T) {
	boom := errors.New("boom")
	exact := func(context.Context, string) (*Reference, error) { return nil, boom }
	fuzzy := func(context.Context, string) (*Reference, error) {
		return &Reference{ExternalID: "2"}, nil
	}

	ref, err := ResolveReference(context.Background(), "x", exact, fuzzy)
	if err != nil || ref == nil || ref.ExternalID != "2" {
		t.Fatalf("ResolveReference() = %v, %v, want fuzzy match", ref, err)
	}

	fuzzy = func(context.Context, string) (*Reference, error) { return nil, nil }
	ref, err = ResolveReference(context.Background(), "x", exact, fuzzy)
	if ref != nil {
		t.Fatalf("ResolveReference() = %v, want nil", ref)
	}
	if !errors.Is(err, boom) {
		t.Errorf("ResolveReference() error = %v, want %v", err, boom)
	}
}

func TestResolver_Reference(t *testing.T) {
	tests := []struct {
		name      string
		board     string
		term      string
		want      string
		wantFuzzy bool
	}{
		{"exact", "clients", "Acme Corp", "101", false},
		{"exact folded", "clients", "  acai   BRASIL ", "102", false},
		{"fuzzy", "clients", "acme", "101", true},
		{"numeric id", "formats", "201", "201", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newFakeDirectory()
			ref, err := NewResolver(dir).Reference(context.Background(), "client", tt.board, tt.term)
			if err != nil {
				t.Fatalf("Reference() error = %v", err)
			}
			if ref.ExternalID != tt.want {
				t.Errorf("Reference().ExternalID = %q, want %q", ref.ExternalID, tt.want)
			}
			if got := dir.searchCalls > 0; got != tt.wantFuzzy {
				t.Errorf("fuzzy called = %v, want %v", got, tt.wantFuzzy)
			}
		})
	}
}

func TestResolver_ReferenceMiss(t *testing.T) {
	_, err := NewResolver(newFakeDirectory()).Reference(context.Background(), "client", "clients", "Globex")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Reference() error = %v, want *ValidationError", err)
	}
	if ve.Field != "client" || ve.Value != "Globex" {
		t.Errorf("ValidationError = %+v, want field client value Globex", ve)
	}
	if !errors.Is(err, ErrValidationSkip) {
		t.Error("miss should wrap ErrValidationSkip")
	}
}

func TestResolver_ReferenceLookupError(t *testing.T) {
	boom := errors.New("db down")
	dir := newFakeDirectory()
	dir.err = boom

	_, err := NewResolver(dir).Reference(context.Background(), "client", "clients", "Acme Corp")
	if !errors.Is(err, ErrValidationSkip) || !errors.Is(err, boom) {
		t.Errorf("Reference() error = %v, want skip wrapping %v", err, boom)
	}
}

func TestResolver_References(t *testing.T) {
	dir := newFakeDirectory()
	ids, skipped := NewResolver(dir).References(context.Background(), "client", "clients",
		[]string{"Acme Corp", " ", "555", "Globex", "açaí brasil"})

	if diff := cmp.Diff([]string{"101", "555", "102"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(skipped) != 1 {
		t.Fatalf("len(skipped) = %d, want 1", len(skipped))
	}
	if dir.idCalls != 0 {
		t.Errorf("numeric token looked up %d times, want pass-through", dir.idCalls)
	}
}

func TestResolver_People(t *testing.T) {
	ids, skipped := NewResolver(newFakeDirectory()).People(context.Background(), "owner",
		[]string{"ANA@example.com", "42", "nobody@example.com", "not-an-email", ""})

	if diff := cmp.Diff([]string{"77", "42"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(skipped) != 2 {
		t.Errorf("len(skipped) = %d, want 2", len(skipped))
	}
	for _, err := range skipped {
		if !errors.Is(err, ErrValidationSkip) {
			t.Errorf("skip %v does not wrap ErrValidationSkip", err)
		}
	}
}

func TestFoldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"São  Paulo", "sao paulo"},
		{"  ACME\tCorp ", "acme corp"},
		{"Crème Brûlée", "creme brulee"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FoldName(tt.in); got != tt.want {
			t.Errorf("FoldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
