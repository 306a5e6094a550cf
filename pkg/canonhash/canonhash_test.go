package canonhash

import (
	"strings"
	"testing"
)

func TestCanonicalBytesSortsKeysAndIsDeterministic(t *testing.T) {
	a := Obj(map[string]Value{
		"b": Int(2),
		"a": Int(1),
		"c": Arr(Str("x"), Str("y")),
	})
	b := Obj(map[string]Value{
		"c": Arr(Str("x"), Str("y")),
		"a": Int(1),
		"b": Int(2),
	})

	wantA := CanonicalBytes(a)
	wantB := CanonicalBytes(b)
	if string(wantA) != string(wantB) {
		t.Fatalf("key-order-independent objects produced different canonical bytes: %q vs %q", wantA, wantB)
	}
	if string(wantA) != `{"a":1,"b":2,"c":["x","y"]}` {
		t.Fatalf("unexpected canonical bytes: %q", wantA)
	}
}

func TestCanonicalBytesRoundTripStable(t *testing.T) {
	obj := map[string]Value{
		"name":  Str("spread"),
		"count": Int(3),
		"tags":  Arr(Str("a"), Str("b")),
		"meta":  Null(),
	}
	v := Obj(obj)
	first := CanonicalHash(v)
	for i := 0; i < 5; i++ {
		if got := CanonicalHash(v); got != first {
			t.Fatalf("hash not stable across repeated computation: %s != %s", got, first)
		}
	}
}

func TestCanonicalStringLeavesUTF8Unescaped(t *testing.T) {
	v := Str("café ☃")
	got := string(CanonicalBytes(v))
	if !strings.Contains(got, `é`) || !strings.Contains(got, `☃`) {
		t.Fatalf("expected raw UTF-8 bytes preserved (ensure_ascii=False equivalent), got %q", got)
	}
}

func TestInjectSelfHashDoesNotMutateCallerMapAndRoundTrips(t *testing.T) {
	original := map[string]Value{
		"plan_id": Str("p1"),
		"amount":  Int(100),
	}
	updated, digest := InjectSelfHash(original, SelfHashField)

	if _, present := original[SelfHashField]; present {
		t.Fatalf("InjectSelfHash mutated caller's map")
	}
	if got, ok := updated[SelfHashField].String(); !ok || got != digest {
		t.Fatalf("injected field does not carry the returned digest: got=%q want=%q", got, digest)
	}

	recomputed := HashForArtifact(updated)
	if recomputed != digest {
		t.Fatalf("self-hash did not round trip: stored=%s recomputed=%s", digest, recomputed)
	}
}

func TestFromAnyRejectsNativeFloat(t *testing.T) {
	_, err := FromAny(map[string]any{"x": 1.5})
	if err == nil {
		t.Fatal("expected error rejecting native float, got nil")
	}
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Code != CodeFloatForbidden {
		t.Fatalf("expected CodeFloatForbidden, got %s", cerr.Code)
	}
	if cerr.Path != "$.x" {
		t.Fatalf("expected locator $.x, got %s", cerr.Path)
	}
}

func TestParseRejectsFloatLiteral(t *testing.T) {
	_, err := Parse([]byte(`{"price": 1.23}`))
	if err == nil {
		t.Fatal("expected error parsing a non-integral numeric literal")
	}
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Code != CodeFloatForbidden {
		t.Fatalf("expected CodeFloatForbidden, got %s", cerr.Code)
	}
}

func TestParseRejectsScientificNotation(t *testing.T) {
	_, err := Parse([]byte(`{"x": 1e3}`))
	if err == nil {
		t.Fatal("expected error parsing scientific notation literal")
	}
}

func TestParseAcceptsIntegerLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"qty": 42, "nested": [1, 2, 3], "ok": true, "none": null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := v.Object()
	if !ok {
		t.Fatal("expected object")
	}
	qty, ok := obj["qty"].Int()
	if !ok || qty != 42 {
		t.Fatalf("expected qty=42, got %v ok=%v", qty, ok)
	}
}

func TestFromAnyRejectsNonStringKeyedMap(t *testing.T) {
	_, err := FromAny(map[int]any{1: "x"})
	if err == nil {
		t.Fatal("expected error for non-string-keyed map")
	}
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Code != CodeNonStringKey {
		t.Fatalf("expected CodeNonStringKey, got %s", cerr.Code)
	}
}
