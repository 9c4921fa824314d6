package ef

import (
	"math/rand"
	"testing"
)

func TestEncodeDecodeEmpty(t *testing.T) {
	buf := Encode(nil)
	if len(buf) != 1 || buf[0] != 0 {
		t.Fatalf("Encode(nil) = %v, want [0]", buf)
	}
	values, next, ok := Decode(buf, 0)
	if !ok || len(values) != 0 || next != 1 {
		t.Fatalf("Decode(empty) = %v, %d, %v", values, next, ok)
	}
	if _, _, ok := Decode(nil, 0); ok {
		t.Fatalf("Decode of empty input should fail")
	}
}

func TestEncodeDecodeSingleton(t *testing.T) {
	buf := Encode([]uint64{42})
	values, next, ok := Decode(buf, 0)
	if !ok || len(values) != 1 || values[0] != 42 || next != len(buf) {
		t.Fatalf("roundtrip singleton failed: %v %d %v", values, next, ok)
	}
}

func TestEncodeIdenticalValues(t *testing.T) {
	const n = 5
	const v = 1 << 40
	values := make([]uint64, n)
	for i := range values {
		values[i] = v
	}
	buf := Encode(values)

	// varint(n) is a single byte since n < 128.
	if buf[0] != n {
		t.Fatalf("varint(n) = %d, want %d", buf[0], n)
	}
	_, pos, ok := getVarint(buf, 1) // skip past varint(v), land on the k byte
	if !ok {
		t.Fatalf("could not parse varint(v)")
	}
	if buf[pos] != 0 {
		t.Fatalf("k byte = %d, want 0", buf[pos])
	}
	// remaining n-1 unary codes, each a single "1" bit in a byte packed LSB-first.
	rest := buf[pos+1:]
	if len(rest) != 1 {
		t.Fatalf("expected 1 trailing byte for %d unary codes, got %d", n-1, len(rest))
	}
	if rest[0] != 0x0F { // bits 0..3 set (4 deltas, each unary "1")
		t.Fatalf("trailing byte = %08b, want %08b", rest[0], 0x0F)
	}

	decoded, next, ok := Decode(buf, 0)
	if !ok || next != len(buf) {
		t.Fatalf("decode failed: %v %v", next, ok)
	}
	for i, got := range decoded {
		if got != v {
			t.Fatalf("decoded[%d] = %d, want %d", i, got, v)
		}
	}
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(200)
		values := make([]uint64, n)
		var cur uint64
		for i := range values {
			cur += uint64(rng.Intn(1000))
			values[i] = cur
		}
		buf := Encode(values)
		decoded, next, ok := Decode(buf, 0)
		if !ok {
			t.Fatalf("trial %d: decode failed", trial)
		}
		if next != len(buf) {
			t.Fatalf("trial %d: consumed %d, want %d", trial, next, len(buf))
		}
		if len(decoded) != n {
			t.Fatalf("trial %d: got %d values, want %d", trial, len(decoded), n)
		}
		for i := range values {
			if decoded[i] != values[i] {
				t.Fatalf("trial %d: decoded[%d] = %d, want %d", trial, i, decoded[i], values[i])
			}
		}
	}
}

func TestDecodeConcatenatedStreams(t *testing.T) {
	a := Encode([]uint64{1, 2, 3})
	b := Encode([]uint64{100, 200})
	buf := append(append([]byte(nil), a...), b...)

	va, next, ok := Decode(buf, 0)
	if !ok || len(va) != 3 {
		t.Fatalf("first stream decode failed: %v %v", va, ok)
	}
	vb, next2, ok := Decode(buf, next)
	if !ok || len(vb) != 2 || vb[0] != 100 || vb[1] != 200 {
		t.Fatalf("second stream decode failed: %v %v", vb, ok)
	}
	if next2 != len(buf) {
		t.Fatalf("next2 = %d, want %d", next2, len(buf))
	}
}

func TestDecodeShortInput(t *testing.T) {
	buf := Encode([]uint64{1, 2, 3, 4, 5})
	if _, _, ok := Decode(buf[:len(buf)-1], 0); ok {
		t.Fatalf("decode of truncated buffer unexpectedly succeeded")
	}
}

func TestEFTailBits(t *testing.T) {
	if got := EFTailBits(10, 0); got != 0 {
		t.Fatalf("EFTailBits(10,0) = %d, want 0", got)
	}
	if got := EFTailBits(10, 5); got != 0 {
		t.Fatalf("EFTailBits(10,5) = %d, want 0", got)
	}
	if got := EFTailBits(1, 1000); got > 63 || got < 1 {
		t.Fatalf("EFTailBits(1,1000) = %d out of expected range", got)
	}
}
