package canonical_test

import (
	"strings"
	"testing"

	"github.com/clinchain/clinchain/internal/canonical"
)

func TestDigest_knownVector(t *testing.T) {
	// SHA-256 of the empty string.
	got := canonical.Digest(nil)
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("Digest(nil): got %q, want %q", got, want)
	}
}

func TestDigest_hexLength(t *testing.T) {
	d := canonical.DigestString("user-42")
	if len(d) != 64 {
		t.Errorf("digest length: got %d, want 64", len(d))
	}
	if strings.Contains(d, "user-42") {
		t.Error("digest leaks its input")
	}
}

func TestEncode_keyOrderIndependent(t *testing.T) {
	a, err := canonical.Encode(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	b, err := canonical.Encode(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("canonical encodings differ: %s vs %s", a, b)
	}
}

func TestEncode_nestedKeyOrder(t *testing.T) {
	v1 := map[string]any{
		"outer": map[string]any{"x": "1", "y": []any{"a", "b"}},
		"id":    "doc-7",
	}
	v2 := map[string]any{
		"id":    "doc-7",
		"outer": map[string]any{"y": []any{"a", "b"}, "x": "1"},
	}
	a, err := canonical.Encode(v1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := canonical.Encode(v2)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("nested canonical encodings differ: %s vs %s", a, b)
	}
}

func TestEncode_preservesSequenceOrder(t *testing.T) {
	a, _ := canonical.Encode([]int{1, 2, 3})
	b, _ := canonical.Encode([]int{3, 2, 1})
	if string(a) == string(b) {
		t.Error("sequence order should be significant")
	}
}

func TestEncode_unserializable(t *testing.T) {
	if _, err := canonical.Encode(make(chan int)); err == nil {
		t.Error("expected error for unserializable value")
	}
}

func TestDigestValue_stableAcrossKeyOrder(t *testing.T) {
	d1, err := canonical.DigestValue(map[string]any{"ip": "10.0.0.1", "ua": "curl"})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := canonical.DigestValue(map[string]any{"ua": "curl", "ip": "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("digests differ under key reordering: %q vs %q", d1, d2)
	}
}
