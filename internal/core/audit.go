package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/goccy/go-json"
)

// AuditRecord is the local trace of one processed submission.
type AuditRecord struct {
	SubmissionID string           `json:"submissionId"`
	FormTitle    string           `json:"formTitle"`
	Descriptor   string           `json:"descriptor"`
	ItemID       string           `json:"itemId,omitempty"`
	ChildItemIDs []string         `json:"childItemIds,omitempty"`
	Columns      ColumnValues     `json:"columns"`
	Plans        []AllocationPlan `json:"plans,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	IPAddress    string           `json:"ipAddress,omitempty"`
	UserAgent    string           `json:"userAgent,omitempty"`
	Stage        Stage            `json:"stage"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// FileDumper writes JSON artifacts into a directory. A disabled dumper
// accepts every call and writes nothing.
type FileDumper struct {
	dir     string
	enabled bool
	now     func() time.Time
}

// NewFileDumper creates a dumper writing into dir when enabled.
func NewFileDumper(dir string, enabled bool) *FileDumper {
	return &FileDumper{dir: dir, enabled: enabled, now: time.Now}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Dump writes v as indented JSON to <dir>/<prefix>-<timestamp>.json.
func (d *FileDumper) Dump(ctx context.Context, prefix string, v any) error {
	if d == nil || !d.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("audit dump encode: %w", err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("audit dump mkdir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", unsafeName.ReplaceAllString(prefix, "_"), d.now().UTC().Format("20060102T150405.000000000"))
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("audit dump write: %w", err)
	}
	return nil
}
