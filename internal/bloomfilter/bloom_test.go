package bloomfilter

import "testing"

func TestInsertedElementsAreFound(t *testing.T) {
	f := WithTxos([][]byte{
		{0x01, 0x02, 0x03, 0x04},
		{0xAA, 0xBB, 0xCC, 0xDD, 0xEE},
	}, 0xDEADBEEF)

	if !f.Contains([]byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("expected the first inserted element to be found")
	}
	if !f.Contains([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}) {
		t.Fatalf("expected the second inserted element to be found")
	}
}

func TestNeverInsertedElementIsUsuallyAbsent(t *testing.T) {
	f := WithTxos([][]byte{{0x01, 0x02, 0x03, 0x04}}, 1)
	// False positives are possible by construction but this element's byte
	// pattern is distinct enough from the one inserted element that it
	// should not collide against a filter sized for fpRate=0.001.
	if f.Contains([]byte{0xFF, 0xFE, 0xFD, 0xFC, 0xFB, 0xFA}) {
		t.Fatalf("unexpected false positive for an unrelated element")
	}
}

func TestNewCapsSizeAndHashFuncs(t *testing.T) {
	f := New(1_000_000, 0.00001, 0)
	if len(f.Data()) > MaxFilterSize {
		t.Fatalf("filter size exceeds MaxFilterSize: got %d", len(f.Data()))
	}
	if f.NHashFuncs() > MaxHashFuncs {
		t.Fatalf("hash function count exceeds MaxHashFuncs: got %d", f.NHashFuncs())
	}
}

func TestNewNeverProducesAZeroSizedOrZeroHashFilter(t *testing.T) {
	// n=1 at a loose fpRate pushes the ideal size/hash-count formulas
	// toward zero; both must still clamp to at least 1.
	f := New(1, 0.9, 0)
	if len(f.Data()) < 1 {
		t.Fatalf("expected a non-empty filter, got size %d", len(f.Data()))
	}
	if f.NHashFuncs() < 1 {
		t.Fatalf("expected at least one hash function, got %d", f.NHashFuncs())
	}
}

func TestToWireFilterLoadCarriesFilterParameters(t *testing.T) {
	f := New(10, 0.01, 42)
	msg := f.ToWireFilterLoad(1)
	if msg.Tweak != 42 {
		t.Fatalf("expected tweak 42, got %d", msg.Tweak)
	}
	if msg.HashFuncs != f.NHashFuncs() {
		t.Fatalf("expected HashFuncs %d, got %d", f.NHashFuncs(), msg.HashFuncs)
	}
	if len(msg.Filter) != len(f.Data()) {
		t.Fatalf("expected wire filter data length %d, got %d", len(f.Data()), len(msg.Filter))
	}
}
