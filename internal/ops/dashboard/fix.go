// Package dashboard patches Grafana dashboard JSON files so every
// datasource reference points at a single target UID. Exported Grafana
// dashboards accumulate stale datasource references when they move
// between installations; this rewrites them in place.
package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Result reports what a Fix run did.
type Result struct {
	// Rewritten is the number of datasource references changed.
	Rewritten int

	// BackupPath is the backup written before the first modification,
	// empty when the file was already up to date.
	BackupPath string
}

// Fix rewrites every "datasource" reference in the dashboard file at
// path to the target UID. The file is only written when at least one
// reference actually changes, and a <path>.bak backup of the original
// is created on first change. An existing backup is never overwritten,
// so repeated runs keep the oldest known-good copy.
func Fix(path, targetUID string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dashboard: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse dashboard %s: %w", path, err)
	}

	res := &Result{}
	doc = rewrite(doc, targetUID, res)
	if res.Rewritten == 0 {
		return res, nil
	}

	patched, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode dashboard: %w", err)
	}
	patched = append(patched, '\n')
	if bytes.Equal(patched, raw) {
		res.Rewritten = 0
		return res, nil
	}

	backup := path + ".bak"
	if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(backup, raw, 0o644); err != nil {
			return nil, fmt.Errorf("write backup: %w", err)
		}
		res.BackupPath = backup
	} else if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	if err := os.WriteFile(path, patched, 0o644); err != nil {
		return nil, fmt.Errorf("write dashboard: %w", err)
	}
	return res, nil
}

// rewrite walks the decoded document and returns it with every
// datasource reference pointing at the target UID. Grafana uses two
// reference shapes: a bare string (legacy name reference) and an
// object with a "uid" field.
func rewrite(node any, targetUID string, res *Result) any {
	switch v := node.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "datasource" {
				v[key] = rewriteRef(val, targetUID, res)
				continue
			}
			v[key] = rewrite(val, targetUID, res)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = rewrite(item, targetUID, res)
		}
		return v
	default:
		return node
	}
}

func rewriteRef(ref any, targetUID string, res *Result) any {
	switch v := ref.(type) {
	case string:
		if v == targetUID {
			return v
		}
		res.Rewritten++
		return map[string]any{"uid": targetUID}
	case map[string]any:
		if uid, _ := v["uid"].(string); uid != targetUID {
			v["uid"] = targetUID
			res.Rewritten++
		}
		return v
	default:
		return ref
	}
}
