package scoped

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestTraceEntryString(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	entry := TraceEntry{Kind: "Session", ScopeID: id, Site: Site{File: "main.go", Line: 9}}
	if got := entry.String(); got != "Session("+id.String()+") opened at main.go:9" {
		t.Fatalf("unexpected entry string %q", got)
	}
	entry.Site = Site{}
	if got := entry.String(); !strings.HasSuffix(got, "opened somewhere") {
		t.Fatalf("unexpected entry string %q", got)
	}
}

func TestTraceJSON(t *testing.T) {
	trace := Trace{Kind: "Clock", Entries: []TraceEntry{{
		Kind:    "Clock",
		ScopeID: uuid.New(),
		Site:    Site{File: "clock.go", Line: 3, Function: "main.run"},
	}}}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	if !strings.Contains(string(payload), `"scope_id"`) {
		t.Fatalf("expected snake_case keys, got %s", payload)
	}
	var decoded Trace
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("from json: %v", err)
	}
	if decoded.Entries[0] != trace.Entries[0] {
		t.Fatalf("expected %+v, got %+v", trace.Entries[0], decoded.Entries[0])
	}
}

func TestCallerSite(t *testing.T) {
	site := callerSite(0)
	if !strings.HasSuffix(site.File, "trace_test.go") || !strings.HasSuffix(site.Function, "TestCallerSite") {
		t.Fatalf("unexpected site %+v", site)
	}
}
