package domain

import (
	"reflect"
	"testing"
)

func TestNewStringSet_DropsDuplicatesAndEmpties(t *testing.T) {
	got := NewStringSet("a", "", "b", "a", "c", "b")
	want := StringSet{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NewStringSet = %v; want %v", got, want)
	}
}

func TestStringSet_AddIsNonDestructive(t *testing.T) {
	base := NewStringSet("u1", "u2")

	got, added := base.Add("u3")
	if !added {
		t.Fatalf("expected u3 to be added")
	}
	if !got.Has("u3") || len(got) != 3 {
		t.Fatalf("unexpected result set: %v", got)
	}
	if base.Has("u3") {
		t.Fatalf("receiver mutated: %v", base)
	}

	// Re-adding an existing member is a no-op.
	again, added := got.Add("u3")
	if added || !reflect.DeepEqual(again, got) {
		t.Fatalf("Add of existing member changed set: %v added=%v", again, added)
	}

	// Empty strings are never members.
	same, added := base.Add("")
	if added || len(same) != 2 {
		t.Fatalf("Add(\"\") = %v added=%v", same, added)
	}
}

func TestStringSet_UnionIsCommutativeOnMembership(t *testing.T) {
	a := NewStringSet("u1", "u2")
	b := NewStringSet("u2", "u3")

	ab := a.Union(b)
	ba := b.Union(a)

	for _, u := range []string{"u1", "u2", "u3"} {
		if !ab.Has(u) || !ba.Has(u) {
			t.Fatalf("union missing %q: ab=%v ba=%v", u, ab, ba)
		}
	}
	if len(ab) != 3 || len(ba) != 3 {
		t.Fatalf("union introduced duplicates: ab=%v ba=%v", ab, ba)
	}
}

func TestStringSet_RoundTrip(t *testing.T) {
	in := NewStringSet("u1", "u2")
	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out StringSet
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip = %v; want %v", out, in)
	}
}

func TestStringSet_NilSerializesAsEmptyArray(t *testing.T) {
	var s StringSet
	raw, err := s.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if raw != "[]" {
		t.Fatalf("nil set Value = %v; want []", raw)
	}

	var out StringSet
	if err := out.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("Scan(nil) = %v; want empty set", out)
	}
}

func TestPayload_RoundTripPreservesStructure(t *testing.T) {
	in := Payload{
		"kind":  "presence",
		"users": []any{"u1", "u2"},
		"meta":  map[string]any{"online": true},
	}
	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out Payload
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out["kind"] != "presence" {
		t.Fatalf("kind = %v", out["kind"])
	}
	meta, ok := out["meta"].(map[string]any)
	if !ok || meta["online"] != true {
		t.Fatalf("meta = %v", out["meta"])
	}
}

func TestAttachments_RoundTripPreservesOrder(t *testing.T) {
	in := Attachments{
		{"name": "scan.pdf", "size": float64(1024)},
		{"name": "photo.jpg"},
	}
	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out Attachments
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 2 || out[0]["name"] != "scan.pdf" || out[1]["name"] != "photo.jpg" {
		t.Fatalf("round trip = %v", out)
	}
}

func TestScan_RejectsUnsupportedColumnType(t *testing.T) {
	var s StringSet
	if err := s.Scan(42); err == nil {
		t.Fatalf("expected error for int column")
	}
}
