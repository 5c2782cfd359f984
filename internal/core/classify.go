package core

import (
	"fmt"
	"strings"
)

// markerRule maps field-name markers to a column type.
type markerRule struct {
	Type    ColumnType
	Markers []string
}

// classifyRules is checked in order; the first rule with a marker contained
// in the lowercased field name wins.
var classifyRules = []markerRule{
	{ColumnFile, []string{"file", "upload", "attachment"}},
	{ColumnDate, []string{"date", "deadline"}},
	{ColumnNumber, []string{"numeric", "number", "quantity", "amount"}},
	{ColumnPeople, []string{"people", "person", "owner"}},
	{ColumnDropdown, []string{"dropdown", "multi_select"}},
	{ColumnStatus, []string{"status", "color"}},
	{ColumnTags, []string{"tag"}},
	{ColumnBoardRelation, []string{"board_relation", "connect_boards"}},
	{ColumnTimeline, []string{"timeline", "timerange"}},
	{ColumnCheckbox, []string{"checkbox", "boolean"}},
}

func init() {
	if err := validateRules(classifyRules); err != nil {
		panic(err)
	}
}

// validateRules rejects tables where a marker of one type contains, or is
// contained in, a marker of another type. Such pairs make the result depend
// on rule order rather than on the table.
func validateRules(rules []markerRule) error {
	type owned struct {
		marker string
		typ    ColumnType
	}
	var all []owned
	for _, r := range rules {
		for _, m := range r.Markers {
			m = strings.ToLower(m)
			if m == "" {
				return fmt.Errorf("classify: empty marker for %s", r.Type)
			}
			for _, o := range all {
				if o.typ == r.Type {
					continue
				}
				if strings.Contains(m, o.marker) || strings.Contains(o.marker, m) {
					return fmt.Errorf("classify: marker %q (%s) overlaps %q (%s)", m, r.Type, o.marker, o.typ)
				}
			}
			all = append(all, owned{m, r.Type})
		}
	}
	return nil
}

// Classify returns the column type implied by a field name.
// Names matching no marker are ColumnText.
func Classify(fieldName string) ColumnType {
	name := strings.ToLower(fieldName)
	for _, r := range classifyRules {
		for _, m := range r.Markers {
			if strings.Contains(name, m) {
				return r.Type
			}
		}
	}
	return ColumnText
}
