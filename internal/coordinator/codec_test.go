package coordinator

import (
	"bytes"
	"strings"
	"testing"
)

func TestLengthRoundTripShort(t *testing.T) {
	for _, n := range []int64{0, 1, 100, 247} {
		buf := putLength(nil, n)
		if len(buf) != 1 {
			t.Fatalf("putLength(%d) = %v, want 1 byte", n, buf)
		}
		got, next, ok := getLength(buf, 0)
		if !ok || got != n || next != 1 {
			t.Fatalf("getLength(putLength(%d)) = %d, %d, %v", n, got, next, ok)
		}
	}
}

func TestLengthRoundTripLong(t *testing.T) {
	for _, n := range []int64{248, 300, 1 << 20, 1 << 40} {
		buf := putLength(nil, n)
		if buf[0] < 248 {
			t.Fatalf("putLength(%d) first byte = %d, want >= 248", n, buf[0])
		}
		got, next, ok := getLength(buf, 0)
		if !ok || got != n || next != len(buf) {
			t.Fatalf("getLength(putLength(%d)) = %d, %d, %v", n, got, next, ok)
		}
	}
}

func TestDictRoundTrip(t *testing.T) {
	d := NewDict().
		Set("protocol", clientProtocol).
		Set("solver", "pushfight-solver").
		Set("user", "alice").
		Set("machine", "box1")

	var buf bytes.Buffer
	if err := WriteMessage(&buf, d); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	for _, key := range []string{"protocol", "solver", "user", "machine"} {
		want, _ := d.Get(key)
		gotVal, ok := got.Get(key)
		if !ok || gotVal != want {
			t.Fatalf("Get(%q) = %q, %v; want %q", key, gotVal, ok, want)
		}
	}
}

func TestDictWithLongValue(t *testing.T) {
	long := strings.Repeat("x", 5000)
	d := NewDict().Set("data", long)
	var buf bytes.Buffer
	if err := WriteMessage(&buf, d); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	v, ok := got.Get("data")
	if !ok || v != long {
		t.Fatalf("round-tripped long value mismatched (len %d)", len(v))
	}
}

func TestReadMessageTruncated(t *testing.T) {
	d := NewDict().Set("a", "b")
	var buf bytes.Buffer
	if err := WriteMessage(&buf, d); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-1])
	if _, err := ReadMessage(truncated); err == nil {
		t.Fatalf("ReadMessage on truncated input should fail")
	}
}
