// Package storage provides memory-mapped accessors for the solver's
// packed on-disk arrays: the phase-0 bitmap, the phase-N≥1 ternary
// file, the minimized value table, and the loss-propagation scratch
// bitmaps.
package storage

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/maksverver/pushfight-solver/internal/board"
	"github.com/maksverver/pushfight-solver/internal/chunk"
	"github.com/maksverver/pushfight-solver/internal/perm"
)

// Exact on-disk sizes, in bytes, of the bit-exact files from the
// external interface.
const (
	R0Size        int64 = 50195895750
	RNSize        int64 = 80313433200
	MinimizedSize int64 = 86208131520
)

func init() {
	if perm.TotalPerms/8 != R0Size {
		panic(fmt.Sprintf("storage: totalPerms/8 = %d, want %d", perm.TotalPerms/8, R0Size))
	}
	if perm.TotalPerms/5 != RNSize {
		panic(fmt.Sprintf("storage: totalPerms/5 = %d, want %d", perm.TotalPerms/5, RNSize))
	}
}

// pow3 holds the base-3 place values used to pack/unpack five
// Outcomes per RN byte.
var pow3 = [5]int{1, 3, 9, 27, 81}

// mapFile opens path and memory-maps its first `expected` bytes. If
// the file is smaller than expected, it returns an error (the caller
// should treat this as a fatal I/O error per the solver's error
// taxonomy). If it is larger, only the expected prefix is mapped and a
// warning is logged.
func mapFile(path string, expected int64, writable bool) (data []byte, f *os.File, err error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err = os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	actual := info.Size()
	if actual < expected {
		f.Close()
		return nil, nil, fmt.Errorf("storage: %s is %d bytes, want at least %d", path, actual, expected)
	}
	if actual > expected {
		log.Printf("storage: %s is %d bytes, expected %d; mapping prefix only", path, actual, expected)
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err = unix.Mmap(int(f.Fd()), 0, int(expected), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return data, f, nil
}

func unmapFile(data []byte, f *os.File) error {
	if err := unix.Munmap(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// R0 is an accessor for the phase-0 bitmap: bit i (LSB-first within
// byte i/8) is 1 iff position i is a Win-in-1.
type R0 struct {
	data     []byte
	f        *os.File
	writable bool
}

// OpenR0 memory-maps the phase-0 file at path. If writable is false,
// SetRange returns an error.
func OpenR0(path string, writable bool) (*R0, error) {
	data, f, err := mapFile(path, R0Size, writable)
	if err != nil {
		return nil, err
	}
	return &R0{data: data, f: f, writable: writable}, nil
}

// CreateR0 creates (or truncates) and memory-maps a fresh r0.bin file
// at path, zero-initialized, for the phase-0 driver to fill in.
func CreateR0(path string) (*R0, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(R0Size); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	return OpenR0(path, true)
}

// Get reports whether position i is an immediate win.
func (r *R0) Get(i int64) bool {
	return r.data[i/8]>>uint(i%8)&1 != 0
}

// SetRange copies the already bit-packed (LSB-first within each byte)
// result covering positions [start, start+count) into the file. start
// and count must both be multiples of 8, which every part boundary is
// by construction, and len(packed) must equal count/8.
func (r *R0) SetRange(start, count int64, packed []byte) error {
	if !r.writable {
		return fmt.Errorf("storage: R0 accessor is read-only")
	}
	if start%8 != 0 || count%8 != 0 {
		return fmt.Errorf("storage: SetRange range [%d, %d) is not byte-aligned", start, start+count)
	}
	if int64(len(packed)) != count/8 {
		return fmt.Errorf("storage: SetRange got %d packed bytes, want %d", len(packed), count/8)
	}
	copy(r.data[start/8:(start+count)/8], packed)
	return nil
}

// SetBit sets or clears a single position's bit. It is safe without
// further synchronization only because every caller's part range is
// byte-aligned (chunk.PartSize is a multiple of 8), so no two parts
// ever touch the same byte.
func (r *R0) SetBit(i int64, win bool) error {
	if !r.writable {
		return fmt.Errorf("storage: R0 accessor is read-only")
	}
	mask := byte(1) << uint(i%8)
	if win {
		r.data[i/8] |= mask
	} else {
		r.data[i/8] &^= mask
	}
	return nil
}

// RawBytes returns the packed bytes covering positions [start,
// start+count), mirroring RN.RawBytes. start and count must both be
// multiples of 8.
func (r *R0) RawBytes(start, count int64) ([]byte, error) {
	if start%8 != 0 || count%8 != 0 {
		return nil, fmt.Errorf("storage: RawBytes range [%d, %d) is not byte-aligned", start, start+count)
	}
	return r.data[start/8 : (start+count)/8], nil
}

// Close unmaps the file and closes the underlying descriptor.
func (r *R0) Close() error { return unmapFile(r.data, r.f) }

// RN is an accessor for a phase-N≥1 ternary-packed file: five Outcomes
// v0..v4 are packed per byte as v0 + 3v1 + 9v2 + 27v3 + 81v4.
type RN struct {
	data     []byte
	f        *os.File
	writable bool
}

// OpenRN memory-maps an RN file at path. If writable is false, Set
// returns an error.
func OpenRN(path string, writable bool) (*RN, error) {
	data, f, err := mapFile(path, RNSize, writable)
	if err != nil {
		return nil, err
	}
	return &RN{data: data, f: f, writable: writable}, nil
}

// CreateRN creates (or truncates) and memory-maps a fresh ternary RN
// file at path, zero-initialized (every position starts Tie). Used by
// back-propagation to materialize a phase's output when its RN-2 isn't
// itself a ternary file (phase 2's RN-2 is r0.bin's bitmap).
func CreateRN(path string) (*RN, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(RNSize); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	return OpenRN(path, true)
}

// Get decodes the Outcome stored for position i.
func (r *RN) Get(i int64) board.Outcome {
	b := int(r.data[i/5])
	d := int(i % 5)
	return board.Outcome((b / pow3[d]) % 3)
}

// Set stores outcome at position i. The caller must ensure no other
// writer targets the same byte (i/5) concurrently; in practice each
// chunk owns a byte-aligned range since chunk.Size is a multiple of 5.
func (r *RN) Set(i int64, o board.Outcome) error {
	if !r.writable {
		return fmt.Errorf("storage: RN accessor at is read-only")
	}
	idx := i / 5
	d := int(i % 5)
	b := int(r.data[idx])
	old := (b / pow3[d]) % 3
	b += (int(o) - old) * pow3[d]
	r.data[idx] = byte(b)
	return nil
}

// Close unmaps the file and closes the underlying descriptor.
func (r *RN) Close() error { return unmapFile(r.data, r.f) }

// RawBytes returns the packed bytes covering positions [start,
// start+count), for callers (chunk upload) that need the on-disk
// representation directly instead of decoding through Get. start and
// count must both be multiples of 5, which every chunk and part
// boundary is by construction.
func (r *RN) RawBytes(start, count int64) ([]byte, error) {
	if start%5 != 0 || count%5 != 0 {
		return nil, fmt.Errorf("storage: RawBytes range [%d, %d) is not byte-aligned", start, start+count)
	}
	return r.data[start/5 : (start+count)/5], nil
}

// Minimized is an accessor for minimized.bin: one Value byte per
// reachable canonical index.
type Minimized struct {
	data     []byte
	f        *os.File
	writable bool
}

// OpenMinimized memory-maps minimized.bin at path.
func OpenMinimized(path string, writable bool) (*Minimized, error) {
	data, f, err := mapFile(path, MinimizedSize, writable)
	if err != nil {
		return nil, err
	}
	return &Minimized{data: data, f: f, writable: writable}, nil
}

// ReadByte returns the Value byte at minimized index i.
func (m *Minimized) ReadByte(i int64) byte { return m.data[i] }

// ReadBytes batch-reads the Value bytes at the given sorted offsets.
func (m *Minimized) ReadBytes(sortedOffsets []int64) []byte {
	out := make([]byte, len(sortedOffsets))
	for k, off := range sortedOffsets {
		out[k] = m.data[off]
	}
	return out
}

// WriteByte stores value at minimized index i. Only valid if the
// accessor was opened writable (used by the minimization pipeline,
// which is the sole writer and proceeds in strictly increasing index
// order).
func (m *Minimized) WriteByte(i int64, value byte) error {
	if !m.writable {
		return fmt.Errorf("storage: minimized accessor is read-only")
	}
	m.data[i] = value
	return nil
}

// Close unmaps the file and closes the underlying descriptor.
func (m *Minimized) Close() error { return unmapFile(m.data, m.f) }

// LossPropagation is the shared-mutable scratch bitmap pair used by
// back-propagation: one bit per position recording "a win was found
// here", and one bit per chunk recording "this chunk's output has
// been fully written". Both segments support only atomic bit-set and
// atomic bit-test; bits are grouped into 32-bit words so updates can
// use a CompareAndSwap retry loop instead of a lock.
type LossPropagation struct {
	data       []byte
	f          *os.File
	winWords   []uint32
	doneWords  []uint32
}

func wordsFor(nbits int64) int64 { return (nbits + 31) / 32 }

// lossPropagationSize returns the total byte size of the scratch file
// for the current position count: a win-bitmap word array followed by
// a chunk-complete-bitmap word array, both 4-byte aligned.
func lossPropagationSize() int64 {
	return (wordsFor(perm.TotalPerms) + wordsFor(chunk.NumChunks)) * 4
}

// CreateLossPropagation creates (or truncates) and memory-maps a fresh
// loss-propagation scratch file at path, zero-initialized.
func CreateLossPropagation(path string) (*LossPropagation, error) {
	size := lossPropagationSize()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	return OpenLossPropagation(path)
}

// OpenLossPropagation memory-maps an existing loss-propagation scratch
// file at path.
func OpenLossPropagation(path string) (*LossPropagation, error) {
	size := lossPropagationSize()
	data, f, err := mapFile(path, size, true)
	if err != nil {
		return nil, err
	}
	winWordCount := wordsFor(perm.TotalPerms)
	lp := &LossPropagation{data: data, f: f}
	lp.winWords = wordsView(data[:winWordCount*4])
	lp.doneWords = wordsView(data[winWordCount*4:])
	return lp, nil
}

func wordsView(b []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// MarkWin atomically sets the win bit for position i.
func (lp *LossPropagation) MarkWin(i int64) {
	setBit(lp.winWords, i)
}

// HasWin atomically tests the win bit for position i.
func (lp *LossPropagation) HasWin(i int64) bool {
	return testBit(lp.winWords, i)
}

// MarkChunkComplete atomically sets the completion flag for chunk c.
func (lp *LossPropagation) MarkChunkComplete(c int64) {
	setBit(lp.doneWords, c)
}

// IsChunkComplete atomically tests the completion flag for chunk c.
func (lp *LossPropagation) IsChunkComplete(c int64) bool {
	return testBit(lp.doneWords, c)
}

// Close unmaps the file and closes the underlying descriptor.
func (lp *LossPropagation) Close() error { return unmapFile(lp.data, lp.f) }

func setBit(words []uint32, i int64) {
	w := &words[i/32]
	bit := uint32(1) << uint(i%32)
	for {
		old := atomic.LoadUint32(w)
		if old&bit != 0 {
			return
		}
		if atomic.CompareAndSwapUint32(w, old, old|bit) {
			return
		}
	}
}

func testBit(words []uint32, i int64) bool {
	return atomic.LoadUint32(&words[i/32])&(uint32(1)<<uint(i%32)) != 0
}
