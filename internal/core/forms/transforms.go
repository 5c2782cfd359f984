package forms

import (
	"strings"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

// joinList turns a multi-choice answer into one comma-separated string.
func joinList(v core.Value) core.Value {
	items := core.NormalizeToStrings(v)
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return core.Null{}
	}
	return core.String(strings.Join(out, ", "))
}

// collapseSpace trims text and collapses inner whitespace runs.
func collapseSpace(v core.Value) core.Value {
	s, ok := v.(core.Scalar)
	if !ok || s.Kind != core.ScalarString {
		return v
	}
	return core.String(strings.Join(strings.Fields(s.Str), " "))
}

// lowerEmail normalizes an email answer for directory lookups.
func lowerEmail(v core.Value) core.Value {
	s, ok := v.(core.Scalar)
	if !ok || s.Kind != core.ScalarString {
		return v
	}
	return core.String(strings.ToLower(strings.TrimSpace(s.Str)))
}

// yesNo maps a localized yes/no answer to a boolean.
func yesNo(v core.Value) core.Value {
	s, ok := v.(core.Scalar)
	if !ok || s.Kind != core.ScalarString {
		return v
	}
	switch strings.ToLower(strings.TrimSpace(s.Str)) {
	case "sim", "si", "oui", "ja":
		return core.Bool(true)
	case "não", "nao", "non", "nein":
		return core.Bool(false)
	}
	return v
}
