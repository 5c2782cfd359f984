package core

import (
	"strings"
)

// Format converts a normalized value into the wire shape of a column type.
// The boolean result is false when the column should be omitted: the value
// is Null or blank, or it does not parse as the type requires.
func Format(v Value, t ColumnType) (any, bool) {
	if v == nil {
		return nil, false
	}
	if _, ok := v.(Null); ok {
		return nil, false
	}

	switch t {
	case ColumnNumber:
		return formatNumber(v)
	case ColumnCheckbox:
		return formatCheckbox(v)
	case ColumnDate:
		return formatDate(v)
	case ColumnStatus:
		return formatStatus(v)
	case ColumnDropdown:
		return formatDropdown(v)
	case ColumnTags:
		return formatTags(v)
	case ColumnFile:
		return formatFile(v)
	case ColumnBoardRelation:
		return formatBoardRelation(v)
	case ColumnTimeline:
		return formatTimeline(v)
	case ColumnPeople:
		return formatPeople(v)
	default:
		return formatText(v)
	}
}

func formatText(v Value) (any, bool) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, false
	}
	return s.Text(), true
}

func formatNumber(v Value) (any, bool) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, false
	}
	switch s.Kind {
	case ScalarNumber:
		if !finite(s.Num) {
			return nil, false
		}
		return s.Num, true
	case ScalarString:
		f, ok := parseNumber(s.Str)
		if !ok {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

func formatCheckbox(v Value) (any, bool) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, false
	}
	var checked bool
	switch s.Kind {
	case ScalarBool:
		checked = s.Bool
	case ScalarNumber:
		switch s.Num {
		case 0:
			checked = false
		case 1:
			checked = true
		default:
			return nil, false
		}
	default:
		b, ok := parseBool(s.Str)
		if !ok {
			return nil, false
		}
		checked = b
	}
	return map[string]any{"checked": checked}, true
}

func formatDate(v Value) (any, bool) {
	var raw string
	switch t := v.(type) {
	case Scalar:
		raw = t.Text()
	case Object:
		inner, ok := t["date"].(Scalar)
		if !ok {
			return nil, false
		}
		raw = inner.Text()
	default:
		return nil, false
	}
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	return map[string]any{"date": normalizeDate(raw)}, true
}

func formatStatus(v Value) (any, bool) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, false
	}
	if s.Kind == ScalarNumber {
		if n, ok := scalarInt(s); ok && n >= 0 {
			return map[string]any{"index": n}, true
		}
	}
	label := strings.TrimSpace(s.Text())
	if label == "" {
		return nil, false
	}
	if isDigits(label) {
		if n, ok := parseInt(label); ok {
			return map[string]any{"index": n}, true
		}
	}
	return map[string]any{"label": label}, true
}

// nonBlank returns the trimmed, non-empty entries of a string list.
func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatDropdown(v Value) (any, bool) {
	items := nonBlank(NormalizeToStrings(v))
	if len(items) == 0 {
		return nil, false
	}
	ids := make([]int64, 0, len(items))
	for _, s := range items {
		n, ok := parseInt(s)
		if !ok {
			return map[string]any{"labels": items}, true
		}
		ids = append(ids, n)
	}
	return map[string]any{"ids": ids}, true
}

func formatTags(v Value) (any, bool) {
	items := nonBlank(NormalizeToStrings(v))
	if len(items) == 0 {
		return nil, false
	}
	tags := make([]any, len(items))
	for i, s := range items {
		if n, ok := parseInt(s); ok {
			tags[i] = n
		} else {
			tags[i] = s
		}
	}
	return map[string]any{"tag_ids": tags}, true
}

func formatFile(v Value) (any, bool) {
	items := nonBlank(NormalizeToStrings(v))
	if len(items) == 0 {
		return nil, false
	}
	return map[string]any{"file_ids": items}, true
}

func formatBoardRelation(v Value) (any, bool) {
	ids := relationIDs(NormalizeToStrings(v))
	if len(ids) == 0 {
		return nil, false
	}
	return map[string]any{"item_ids": ids}, true
}

// relationIDs keeps the integer entries of items in order.
func relationIDs(items []string) []int64 {
	ids := make([]int64, 0, len(items))
	for _, s := range items {
		if n, ok := parseInt(s); ok {
			ids = append(ids, n)
		}
	}
	return ids
}

func formatTimeline(v Value) (any, bool) {
	var from, to string
	switch t := v.(type) {
	case Object:
		f, okf := t["from"].(Scalar)
		e, oke := t["to"].(Scalar)
		if !okf || !oke {
			return nil, false
		}
		from, to = f.Text(), e.Text()
	case Scalar:
		parts := strings.Split(t.Text(), ",")
		if len(parts) != 2 {
			return nil, false
		}
		from, to = parts[0], parts[1]
	default:
		return nil, false
	}

	fromISO, ok := parseDate(from)
	if !ok {
		return nil, false
	}
	toISO, ok := parseDate(to)
	if !ok {
		return nil, false
	}
	return map[string]any{"from": fromISO, "to": toISO}, true
}

// PersonRef is one entry of a people column.
type PersonRef struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
}

func formatPeople(v Value) (any, bool) {
	var entries List
	switch t := v.(type) {
	case Scalar:
		entries = List{t}
	case List:
		entries = t
	case Object:
		inner, ok := t["personsAndTeams"].(List)
		if !ok {
			return nil, false
		}
		entries = inner
	default:
		return nil, false
	}

	people := make([]PersonRef, 0, len(entries))
	for _, e := range entries {
		if p, ok := personEntry(e); ok {
			people = append(people, p)
		}
	}
	if len(people) == 0 {
		return nil, false
	}
	return map[string]any{"personsAndTeams": people}, true
}

func personEntry(v Value) (PersonRef, bool) {
	switch t := v.(type) {
	case Scalar:
		id, ok := scalarInt(t)
		if !ok {
			return PersonRef{}, false
		}
		return PersonRef{ID: id, Kind: "person"}, true
	case Object:
		raw, ok := t["id"].(Scalar)
		if !ok {
			return PersonRef{}, false
		}
		id, ok := scalarInt(raw)
		if !ok {
			return PersonRef{}, false
		}
		kind := "person"
		if k, ok := t["kind"].(Scalar); ok && strings.TrimSpace(k.Str) != "" {
			kind = strings.TrimSpace(k.Str)
		}
		return PersonRef{ID: id, Kind: kind}, true
	}
	return PersonRef{}, false
}
