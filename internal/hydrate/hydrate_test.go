package hydrate

import (
	"errors"
	"strings"
	"testing"
)

type limits struct {
	Depth *int  `json:"depth,omitempty"`
	Reuse *bool `json:"reuse,omitempty"`
}

func TestDecodeMapsKnownFields(t *testing.T) {
	decoder := NewDecoder[limits]()

	got, err := decoder.Decode(Context{Kind: "session"}, map[string]any{"depth": 4, "reuse": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Depth == nil || *got.Depth != 4 {
		t.Fatalf("expected depth 4, got %v", got.Depth)
	}
	if got.Reuse == nil || !*got.Reuse {
		t.Fatalf("expected reuse true, got %v", got.Reuse)
	}
}

func TestDecodeNilPayloadYieldsZero(t *testing.T) {
	got, err := NewDecoder[limits]().Decode(Context{Kind: "clock"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Depth != nil || got.Reuse != nil {
		t.Fatalf("expected undeclared fields, got %+v", got)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder(WithDisallowUnknownFields[limits]())

	_, err := decoder.Decode(Context{Kind: "session"}, map[string]any{"depht": 2})
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if !strings.Contains(err.Error(), `"session"`) {
		t.Fatalf("expected kind name in error, got %v", err)
	}
}

func TestDecodeRunsHooksInOrder(t *testing.T) {
	var order []string
	pre := func(ctx Context, payload map[string]any) (map[string]any, error) {
		order = append(order, "pre:"+ctx.Kind)
		payload["depth"] = 2
		return payload, nil
	}
	post := func(ctx Context, value *limits) error {
		order = append(order, "post:"+ctx.Kind)
		if value.Depth == nil || *value.Depth != 2 {
			t.Fatalf("post hook saw %+v", value)
		}
		return nil
	}
	decoder := NewDecoder(WithPreHook[limits](pre), WithPostHook(post))

	original := map[string]any{}
	if _, err := decoder.Decode(Context{Kind: "audit"}, original); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "pre:audit,post:audit" {
		t.Fatalf("unexpected hook order %v", order)
	}
	if _, ok := original["depth"]; ok {
		t.Fatalf("pre hook mutated the caller payload")
	}
}

func TestDecodePostHookErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	decoder := NewDecoder(WithPostHook(func(Context, *limits) error { return boom }))

	_, err := decoder.Decode(Context{Kind: "session"}, map[string]any{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped post hook error, got %v", err)
	}
}
