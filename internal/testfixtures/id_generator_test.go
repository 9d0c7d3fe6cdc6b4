package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("origin")

	first := gen.Next()
	second := gen.Next()

	if first != "origin-1" || second != "origin-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); len(issued) != 2 || issued[1] != second {
		t.Fatalf("unexpected issued list %v", issued)
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset("wipe")

	if next := gen.Next(); next != "wipe-1" {
		t.Fatalf("expected wipe-1 after reset, got %q", next)
	}
}
