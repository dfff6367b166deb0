package zlib

import (
	"github.com/clecat/decompress/flate"
	"github.com/clecat/decompress/internal/checksum"
)

type encState int

const (
	encHeader encState = iota
	encBody
	encTrailer
	encDone
)

// Encoder wraps a flate.Encoder with RFC 1950 framing.
type Encoder struct {
	inner *flate.Encoder
	sum   checksum.Hash

	state   encState
	hdr     [2]byte
	hdrPos  int
	trailer [4]byte
	trlPos  int

	out      []byte
	pos      int
	bodyBase int // e.pos at the last inner.SetOutput call, so UsedOut (cumulative per call) maps back to an absolute e.pos
}

// NewEncoder creates an Encoder at the given level (0..9) and window size
// exponent wbits (8..15).
func NewEncoder(level int, wbits uint) (*Encoder, error) {
	inner, err := flate.NewEncoder(level, wbits)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		inner: inner,
		sum:   checksum.NewAdler32(),
		hdr:   header(wbits, level),
		state: encHeader,
	}, nil
}

// Write registers a plaintext input slice, tagged with a flush directive.
func (e *Encoder) Write(p []byte, flush flate.FlushMode) {
	if len(p) > 0 {
		e.sum.Update(p, 0, len(p))
	}
	e.inner.Write(p, flush)
}

// Finish marks the stream's final block.
func (e *Encoder) Finish() { e.inner.Finish() }

// SetOutput registers a new output slice.
func (e *Encoder) SetOutput(buf []byte) {
	e.out = buf
	e.pos = 0
	if e.state == encBody {
		e.inner.SetOutput(buf)
		e.bodyBase = 0
	}
}

// UsedOut reports how many bytes of the current output slice have been
// written.
func (e *Encoder) UsedOut() int { return e.pos }

// Eval advances the encoder as far as the registered buffers allow.
func (e *Encoder) Eval() (flate.Status, error) {
	for {
		switch e.state {
		case encHeader:
			for e.hdrPos < len(e.hdr) {
				if e.pos >= len(e.out) {
					return flate.StatusFlush, nil
				}
				e.out[e.pos] = e.hdr[e.hdrPos]
				e.pos++
				e.hdrPos++
			}
			e.state = encBody
			e.bodyBase = e.pos
			e.inner.SetOutput(e.out[e.pos:])

		case encBody:
			st, err := e.inner.Eval()
			e.pos = e.bodyBase + e.inner.UsedOut()
			switch st {
			case flate.StatusFlush:
				return flate.StatusFlush, nil
			case flate.StatusAwait:
				return flate.StatusAwait, nil
			case flate.StatusError:
				return flate.StatusError, err
			case flate.StatusEnd:
				e.trailer = be32(e.sum.Digest())
				e.trlPos = 0
				e.state = encTrailer
			}

		case encTrailer:
			for e.trlPos < len(e.trailer) {
				if e.pos >= len(e.out) {
					return flate.StatusFlush, nil
				}
				e.out[e.pos] = e.trailer[e.trlPos]
				e.pos++
				e.trlPos++
			}
			e.state = encDone

		case encDone:
			return flate.StatusEnd, nil
		}
	}
}
