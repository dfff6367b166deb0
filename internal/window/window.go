// Package window implements the sliding history buffer a DEFLATE decoder
// copies length/distance matches from, plus the running checksum that
// rides along with it (spec.md §3 "Window").
//
// It is grounded on the teacher's own decompressor state in
// zran/flate/inflate.go — the exported Hist/Hp/Hw/Hfull fields there are a
// ring buffer plus fill-tracking bookkeeping of exactly this shape — and
// on google/wuffs's lib/compression.Reader/Writer Reset contract, which
// this package's Reset method mirrors so a caller can reuse one Window's
// allocation across consecutive decode sessions (spec.md §3 "Ownership").
package window

import "github.com/clecat/decompress/internal/checksum"

// Window is a ring buffer of 2^wbits bytes that also accumulates a
// running checksum (Adler-32, CRC-32, or none, via the checksum.Hash
// capability handle) over every byte it has ever held.
type Window struct {
	buf    []byte
	wbits  uint
	pos    int // next write position, mod len(buf)
	filled int // total bytes written so far, saturating at len(buf)
	sum    checksum.Hash
}

// New creates a Window of size 2^wbits with the given checksum capability.
func New(wbits uint, sum checksum.Hash) *Window {
	w := &Window{}
	w.Reset(wbits, sum)
	return w
}

// Reset discards w's history and checksum state and resizes it (if
// necessary) to 2^wbits, reusing the backing array when possible. This is
// the operation that lets a caller amortize allocation across decode
// sessions (spec.md §3's "reset reuses the allocation").
func (w *Window) Reset(wbits uint, sum checksum.Hash) {
	size := 1 << wbits
	if cap(w.buf) < size {
		w.buf = make([]byte, size)
	} else {
		w.buf = w.buf[:size]
	}
	w.wbits = wbits
	w.pos = 0
	w.filled = 0
	w.sum = sum
}

// WBits returns the window's configured size exponent.
func (w *Window) WBits() uint { return w.wbits }

// Cap returns the window's capacity, 2^wbits.
func (w *Window) Cap() int { return len(w.buf) }

// Fill returns how many of the most recent bytes are currently
// recoverable: min(total bytes written, 2^wbits).
func (w *Window) Fill() int {
	if w.filled > len(w.buf) {
		return len(w.buf)
	}
	return w.filled
}

// Checksum returns the running digest over every byte appended so far.
func (w *Window) Checksum() uint32 {
	if w.sum == nil {
		return 0
	}
	return w.sum.Digest()
}

// Append writes a single literal byte into the window and folds it into
// the running checksum.
func (w *Window) Append(b byte) {
	w.buf[w.pos] = b
	w.pos++
	if w.pos == len(w.buf) {
		w.pos = 0
	}
	if w.filled < len(w.buf) {
		w.filled++
	}
	if w.sum != nil {
		w.sum.Update(w.buf, (w.pos-1+len(w.buf))%len(w.buf), 1)
	}
}

// AppendSlice writes p into the window (e.g. a Stored block's literal
// payload), in bulk, wrapping around the ring as needed.
func (w *Window) AppendSlice(p []byte) {
	if w.sum != nil && len(p) > 0 {
		w.sum.Update(p, 0, len(p))
	}
	for len(p) > 0 {
		n := copy(w.buf[w.pos:], p)
		w.pos += n
		if w.pos == len(w.buf) {
			w.pos = 0
		}
		if w.filled < len(w.buf) {
			w.filled += n
			if w.filled > len(w.buf) {
				w.filled = len(w.buf)
			}
		}
		p = p[n:]
	}
}

// At returns the byte distanceBack positions before the write cursor,
// where distanceBack is 1..Fill(). The caller is responsible for checking
// distanceBack against Fill() first; spec.md requires that check surface
// as ErrInvalidDistance, not a panic or silent wraparound.
func (w *Window) At(distanceBack int) byte {
	idx := w.pos - distanceBack
	if idx < 0 {
		idx += len(w.buf)
	}
	return w.buf[idx]
}

// CopyMatch copies up to length bytes from distance positions back in the
// window into dst, appending each copied byte back into the window as it
// goes (so overlapping matches, e.g. distance=1 run-length expansion,
// read the bytes they just wrote). It copies min(length, len(dst)) bytes
// and returns that count, so the decoder's COPY state can resume a match
// that straddles a Flush suspension with an unchanged distance and a
// reduced remaining length.
func (w *Window) CopyMatch(distance, length int, dst []byte) int {
	n := length
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		b := w.At(distance)
		w.Append(b)
		dst[i] = b
	}
	return n
}
