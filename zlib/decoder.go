package zlib

import (
	"github.com/clecat/decompress/flate"
	"github.com/clecat/decompress/internal/checksum"
)

type decState int

const (
	decHeader decState = iota
	decBody
	decTrailer
	decDone
)

// Decoder wraps a flate.Decoder, consuming a two-byte zlib header before
// the DEFLATE stream and verifying a four-byte Adler-32 trailer after it.
type Decoder struct {
	inner *flate.Decoder

	state  decState
	hdr    [2]byte
	hdrLen int

	trailer [4]byte
	trlLen  int

	in       []byte
	pos      int
	bodyBase int // d.pos at the last inner.Refill call, so UsedIn (cumulative per call) maps back to an absolute d.pos

	out []byte // last output slice registered, handed to inner once the header is parsed
}

// NewDecoder creates a Decoder. The window size is determined from the
// stream's own header once decoded, so the caller does not supply wbits
// up front.
func NewDecoder() *Decoder {
	return &Decoder{state: decHeader}
}

// Refill registers a new input slice.
func (d *Decoder) Refill(buf []byte) {
	d.in = buf
	d.pos = 0
	if d.state == decBody {
		d.inner.Refill(buf)
		d.bodyBase = 0
	}
}

// SetOutput registers a new output slice.
func (d *Decoder) SetOutput(buf []byte) {
	d.out = buf
	if d.inner != nil {
		d.inner.SetOutput(buf)
	}
}

// UsedIn reports how many bytes of the current input slice have been
// consumed.
func (d *Decoder) UsedIn() int {
	if d.state == decBody || d.state == decTrailer {
		return d.pos
	}
	return d.hdrLen
}

// UsedOut reports how many bytes of the current output slice have been
// written.
func (d *Decoder) UsedOut() int {
	if d.inner == nil {
		return 0
	}
	return d.inner.UsedOut()
}

// Checksum returns the Adler-32 digest computed over the decompressed
// output once decoding has finished.
func (d *Decoder) Checksum() uint32 {
	if d.inner == nil {
		return 0
	}
	return d.inner.Window().Checksum()
}

// Eval advances the decoder as far as the registered buffers allow.
func (d *Decoder) Eval() (flate.Status, error) {
	for {
		switch d.state {
		case decHeader:
			for d.hdrLen < len(d.hdr) {
				if d.pos >= len(d.in) {
					return flate.StatusAwait, nil
				}
				d.hdr[d.hdrLen] = d.in[d.pos]
				d.pos++
				d.hdrLen++
			}
			wbits, err := parseHeader(d.hdr)
			if err != nil {
				return flate.StatusError, err
			}
			d.inner, err = flate.NewDecoder(wbits, checksum.NewAdler32())
			if err != nil {
				return flate.StatusError, err
			}
			d.inner.SetOutput(d.out)
			d.bodyBase = d.pos
			d.inner.Refill(d.in[d.pos:])
			d.state = decBody

		case decBody:
			st, err := d.inner.Eval()
			d.pos = d.bodyBase + d.inner.UsedIn()
			switch st {
			case flate.StatusAwait:
				return flate.StatusAwait, nil
			case flate.StatusFlush:
				return flate.StatusFlush, nil
			case flate.StatusError:
				return flate.StatusError, err
			case flate.StatusEnd:
				d.trlLen = 0
				d.state = decTrailer
			}

		case decTrailer:
			for d.trlLen < len(d.trailer) {
				if d.pos >= len(d.in) {
					return flate.StatusAwait, nil
				}
				d.trailer[d.trlLen] = d.in[d.pos]
				d.pos++
				d.trlLen++
			}
			want := uint32(d.trailer[0])<<24 | uint32(d.trailer[1])<<16 | uint32(d.trailer[2])<<8 | uint32(d.trailer[3])
			have := d.inner.Window().Checksum()
			if have != want {
				return flate.StatusError, &ErrInvalidChecksum{Have: have, Want: want}
			}
			d.state = decDone

		case decDone:
			return flate.StatusEnd, nil
		}
	}
}
