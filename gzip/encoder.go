package gzip

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

// Encoder wraps a flate.Encoder with RFC 1952 gzip framing. The header is
// fully determined by hdr at construction time, so (unlike the body) it
// never needs field-by-field resumable parsing to emit.
type Encoder struct {
	inner *flate.Encoder
	sum   checksum.Hash
	isize uint32

	header []byte

	state    encState
	hdrPos   int
	trailer  [8]byte
	trlPos   int

	out      []byte
	pos      int
	bodyBase int
}

// NewEncoder creates an Encoder at the given level (0..9) and window size
// exponent wbits (8..15), tagging the member with hdr's metadata. If
// useHCRC is true, the header carries an FHCRC field.
func NewEncoder(level int, wbits uint, hdr Header, useHCRC bool) (*Encoder, error) {
	inner, err := flate.NewEncoder(level, wbits)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		inner:  inner,
		sum:    checksum.NewCRC32(),
		header: buildHeader(hdr, useHCRC),
		state:  encHeader,
	}, nil
}

func buildHeader(hdr Header, useHCRC bool) []byte {
	var flg byte
	if len(hdr.Extra) > 0 {
		flg |= flExtra
	}
	if hdr.Name != "" {
		flg |= flName
	}
	if hdr.Comment != "" {
		flg |= flComment
	}
	if useHCRC {
		flg |= flHCRC
	}

	b := make([]byte, 10, 10+len(hdr.Extra)+len(hdr.Name)+len(hdr.Comment)+4)
	b[0], b[1], b[2] = magic1, magic2, cmDeflate
	b[3] = flg
	mtime := le32(hdr.MTIME)
	copy(b[4:8], mtime[:])
	b[8] = 0 // XFL: no per-level hint
	b[9] = byte(hdr.OS)

	if len(hdr.Extra) > 0 {
		xlen := len(hdr.Extra)
		b = append(b, byte(xlen), byte(xlen>>8))
		b = append(b, hdr.Extra...)
	}
	if hdr.Name != "" {
		b = append(b, hdr.Name...)
		b = append(b, 0)
	}
	if hdr.Comment != "" {
		b = append(b, hdr.Comment...)
		b = append(b, 0)
	}
	if useHCRC {
		crc := checksum.NewCRC32()
		crc.Update(b, 0, len(b))
		sum := crc.Digest()
		b = append(b, byte(sum), byte(sum>>8))
	}
	return b
}

// Write registers a plaintext input slice, tagged with a flush directive.
func (e *Encoder) Write(p []byte, flush flate.FlushMode) {
	if len(p) > 0 {
		e.sum.Update(p, 0, len(p))
		e.isize += uint32(len(p))
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
			for e.hdrPos < len(e.header) {
				if e.pos >= len(e.out) {
					return flate.StatusFlush, nil
				}
				e.out[e.pos] = e.header[e.hdrPos]
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
				crc := le32(e.sum.Digest())
				isize := le32(e.isize)
				copy(e.trailer[0:4], crc[:])
				copy(e.trailer[4:8], isize[:])
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
