package scoped

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Site is the source location a scope was opened from.
type Site struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Function string `json:"function,omitempty"`
}

// IsZero reports whether no location was captured.
func (s Site) IsZero() bool {
	return s.File == "" && s.Line == 0
}

func (s Site) String() string {
	if s.IsZero() {
		return "somewhere"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// callerSite records the caller skip frames above callerSite itself.
func callerSite(skip int) Site {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{}
	}
	site := Site{File: filepath.ToSlash(file), Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		site.Function = fn.Name()
	}
	return site
}

// TraceEntry describes one open scope on a stack.
type TraceEntry struct {
	Kind    string    `json:"kind"`
	ScopeID uuid.UUID `json:"scope_id"`
	Site    Site      `json:"site"`
}

func (e TraceEntry) String() string {
	if e.Site.IsZero() {
		return fmt.Sprintf("%s(%s) opened somewhere", e.Kind, e.ScopeID)
	}
	return fmt.Sprintf("%s(%s) opened at %s", e.Kind, e.ScopeID, e.Site)
}

// Trace lists the open scopes of one stack, bottom first.
type Trace struct {
	Kind    string       `json:"kind"`
	Entries []TraceEntry `json:"entries"`
}

// Format renders one line per entry, each prefixed with prefix.
func (t Trace) Format(prefix string) string {
	var b strings.Builder
	for _, entry := range t.Entries {
		b.WriteString(prefix)
		b.WriteString(entry.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ToJSON serialises the trace for logging or diagnostics endpoints.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}
