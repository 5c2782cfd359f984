package core

import (
	"context"
	"errors"
	"strings"
)

// DefaultFuzzyLimit bounds the fuzzy lookup result; only the first row is used.
const DefaultFuzzyLimit = 5

// LookupFunc finds a reference by a search term. It returns (nil, nil) on a miss.
type LookupFunc func(ctx context.Context, term string) (*Reference, error)

// ResolveReference tries exact, then fuzzy. A failing lookup counts as a
// miss; its error is returned only when neither lookup produced a match.
// The fuzzy lookup is not called when the exact lookup matches.
func ResolveReference(ctx context.Context, term string, exact, fuzzy LookupFunc) (*Reference, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	var errs []error
	for _, lookup := range []LookupFunc{exact, fuzzy} {
		if lookup == nil {
			continue
		}
		ref, err := lookup(ctx, term)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ref != nil {
			return ref, nil
		}
	}
	return nil, errors.Join(errs...)
}

// Resolver translates human-entered references into canonical ids using a
// Directory. It keeps no cache; every call queries the directory.
type Resolver struct {
	dir        Directory
	fuzzyLimit int
}

// NewResolver creates a resolver over dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir, fuzzyLimit: DefaultFuzzyLimit}
}

// Reference resolves one term on a board. Numeric terms are tried as ids
// first. A miss returns a *ValidationError wrapping ErrValidationSkip.
func (r *Resolver) Reference(ctx context.Context, field, boardID, term string) (*Reference, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &ValidationError{Field: field, Message: "empty reference"}
	}

	var lookupErr error
	if isDigits(term) {
		ref, err := r.dir.FindReferenceByID(ctx, boardID, term)
		if err == nil && ref != nil {
			return ref, nil
		}
		lookupErr = err
	}

	exact := func(ctx context.Context, t string) (*Reference, error) {
		return r.dir.FindReferenceByName(ctx, boardID, t)
	}
	fuzzy := func(ctx context.Context, t string) (*Reference, error) {
		refs, err := r.dir.SearchReferences(ctx, boardID, t, r.fuzzyLimit)
		if err != nil || len(refs) == 0 {
			return nil, err
		}
		return &refs[0], nil
	}

	ref, err := ResolveReference(ctx, term, exact, fuzzy)
	if ref != nil {
		return ref, nil
	}
	return nil, &ValidationError{
		Field:   field,
		Value:   term,
		Message: "no matching reference on board " + boardID,
		Err:     errors.Join(lookupErr, err),
	}
}

// References resolves a batch of tokens to external ids in input order.
// Blank tokens are dropped and numeric tokens pass through as already
// resolved. Misses are returned as skips and left out of the ids.
func (r *Resolver) References(ctx context.Context, field, boardID string, tokens []string) ([]string, []error) {
	ids := make([]string, 0, len(tokens))
	var skipped []error
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "":
			continue
		case isDigits(tok):
			ids = append(ids, tok)
		default:
			ref, err := r.Reference(ctx, field, boardID, tok)
			if err != nil {
				skipped = append(skipped, err)
				continue
			}
			ids = append(ids, ref.ExternalID)
		}
	}
	return ids, skipped
}

// People resolves emails to subscriber ids. Numeric tokens pass through;
// anything else that is not email-like is skipped. An empty result means
// the column should be omitted.
func (r *Resolver) People(ctx context.Context, field string, tokens []string) ([]string, []error) {
	ids := make([]string, 0, len(tokens))
	var skipped []error
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "":
			continue
		case isDigits(tok):
			ids = append(ids, tok)
		case isEmail(tok):
			sub, err := r.dir.FindSubscriberByEmail(ctx, strings.ToLower(tok))
			if err != nil || sub == nil {
				skipped = append(skipped, &ValidationError{
					Field: field, Value: tok, Message: "no subscriber with this email", Err: err,
				})
				continue
			}
			ids = append(ids, sub.ID)
		default:
			skipped = append(skipped, &ValidationError{
				Field: field, Value: tok, Message: "not an email or person id",
			})
		}
	}
	return ids, skipped
}

func isEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t") &&
		strings.Contains(s[at+1:], ".")
}

// idList converts resolved string ids into a List value for the formatter.
func idList(ids []string) List {
	out := make(List, len(ids))
	for i, id := range ids {
		out[i] = String(id)
	}
	return out
}
