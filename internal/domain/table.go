package domain

import (
	"fmt"
	"strings"
)

// TableRef addresses a warehouse table by database, schema and name.
type TableRef struct {
	Database string
	Schema   string
	Table    string
}

// String returns the fully qualified DATABASE.SCHEMA.TABLE name.
func (t TableRef) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Database, t.Schema, t.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// LoadMode controls what a bulk load does with rows already in the target table.
type LoadMode string

const (
	LoadModeAppend  LoadMode = "append"
	LoadModeReplace LoadMode = "replace"
	LoadModeFail    LoadMode = "fail"
)

// ParseLoadMode validates a load mode name.
func ParseLoadMode(s string) (LoadMode, error) {
	switch m := LoadMode(strings.ToLower(s)); m {
	case LoadModeAppend, LoadModeReplace, LoadModeFail:
		return m, nil
	}
	return "", fmt.Errorf("unknown load mode %q", s)
}
