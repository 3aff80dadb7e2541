package activity

import (
	"errors"
	"testing"
)

func TestBuildScopeEvents(t *testing.T) {
	input := ScopeEventInput{
		Kind:     "Session",
		ScopeID:  "6f1c",
		Depth:    2,
		Site:     "main.go:12",
		Metadata: map[string]any{"team": "core"},
	}

	cases := []struct {
		build func(ScopeEventInput) Event
		verb  string
	}{
		{BuildScopeOpenedEvent, VerbScopeOpened},
		{BuildScopeClosedEvent, VerbScopeClosed},
		{BuildScopeRejectedEvent, VerbScopeRejected},
	}
	for _, tc := range cases {
		got := tc.build(input)
		if got.Verb != tc.verb || got.ObjectType != ObjectTypeScope || got.ObjectID != "6f1c" {
			t.Fatalf("unexpected event for %s: %+v", tc.verb, got)
		}
		if got.Metadata["kind"] != "Session" || got.Metadata["depth"] != 2 || got.Metadata["site"] != "main.go:12" {
			t.Fatalf("unexpected metadata for %s: %+v", tc.verb, got.Metadata)
		}
		if got.Metadata["team"] != "core" {
			t.Fatalf("expected caller metadata kept, got %+v", got.Metadata)
		}
		if _, ok := got.Metadata["error"]; ok {
			t.Fatalf("expected no error metadata, got %+v", got.Metadata)
		}
	}
	if _, ok := input.Metadata["kind"]; ok {
		t.Fatalf("builder mutated caller metadata")
	}
}

func TestBuildScopeRejectedEventCarriesError(t *testing.T) {
	got := BuildScopeRejectedEvent(ScopeEventInput{
		Kind:    "Clock",
		ScopeID: "1",
		Err:     errors.New("stack is full"),
	})
	if got.Metadata["error"] != "stack is full" {
		t.Fatalf("expected error metadata, got %+v", got.Metadata)
	}
	if _, ok := got.Metadata["site"]; ok {
		t.Fatalf("expected empty site omitted, got %+v", got.Metadata)
	}
}
