package gzip

import (
	"github.com/clecat/decompress/flate"
	"github.com/clecat/decompress/internal/checksum"
)

type decState int

const (
	dFixed decState = iota
	dExtraLen
	dExtraData
	dName
	dComment
	dHCRC
	dBody
	dTrailer
	dDone
)

// Decoder wraps a flate.Decoder, parsing RFC 1952's header (including its
// optional FEXTRA/FNAME/FCOMMENT/FHCRC fields, each resumable across a
// buffer boundary on its own) before the DEFLATE stream, and verifying
// the CRC-32 + ISIZE trailer after it.
type Decoder struct {
	inner *flate.Decoder

	state decState

	fixed    [10]byte
	fixedLen int
	flg      byte

	extraLenBuf [2]byte
	extraLenLen int
	extraWant   int
	extraBuf    []byte

	nameBuf    []byte
	commentBuf []byte

	hcrcBuf [2]byte
	hcrcLen int

	hdrAccum []byte // header bytes seen so far, for FHCRC verification

	header Header

	trailer [8]byte
	trlLen  int

	in       []byte
	pos      int
	bodyBase int

	totalOut uint32 // UsedOut summed across every output buffer bound so far

	out []byte // last output slice registered, handed to inner once the header is parsed
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{state: dFixed}
}

// Refill registers a new input slice.
func (d *Decoder) Refill(buf []byte) {
	d.in = buf
	d.pos = 0
	if d.state == dBody {
		d.inner.Refill(buf)
		d.bodyBase = 0
	}
}

// SetOutput registers a new output slice.
func (d *Decoder) SetOutput(buf []byte) {
	d.out = buf
	if d.inner != nil {
		d.totalOut += uint32(d.inner.UsedOut())
		d.inner.SetOutput(buf)
	}
}

// UsedIn reports how many bytes of the current input slice have been
// consumed.
func (d *Decoder) UsedIn() int { return d.pos }

// UsedOut reports how many bytes of the current output slice have been
// written.
func (d *Decoder) UsedOut() int {
	if d.inner == nil {
		return 0
	}
	return d.inner.UsedOut()
}

// Header returns the member metadata parsed from the stream's header.
// Only valid once Eval has moved past the header states.
func (d *Decoder) Header() Header { return d.header }

func (d *Decoder) nextByte(capture bool) (byte, bool) {
	if d.pos >= len(d.in) {
		return 0, false
	}
	b := d.in[d.pos]
	d.pos++
	if capture {
		d.hdrAccum = append(d.hdrAccum, b)
	}
	return b, true
}

// Eval advances the decoder as far as the registered buffers allow.
func (d *Decoder) Eval() (flate.Status, error) {
	for {
		switch d.state {
		case dFixed:
			for d.fixedLen < len(d.fixed) {
				b, ok := d.nextByte(true)
				if !ok {
					return flate.StatusAwait, nil
				}
				d.fixed[d.fixedLen] = b
				d.fixedLen++
			}
			if d.fixed[0] != magic1 || d.fixed[1] != magic2 || d.fixed[2] != cmDeflate {
				return flate.StatusError, ErrInvalidHeader
			}
			d.flg = d.fixed[3]
			if d.flg&0xE0 != 0 {
				return flate.StatusError, ErrInvalidHeader
			}
			d.header.MTIME = parseLE32(d.fixed[4:8])
			if os, ok := OfInt(d.fixed[9]); ok {
				d.header.OS = os
			} else {
				d.header.OS = OSUnknown
			}
			if d.flg&flExtra != 0 {
				d.state = dExtraLen
			} else if d.flg&flName != 0 {
				d.state = dName
			} else if d.flg&flComment != 0 {
				d.state = dComment
			} else if d.flg&flHCRC != 0 {
				d.state = dHCRC
			} else {
				d.state = dBody
			}

		case dExtraLen:
			for d.extraLenLen < 2 {
				b, ok := d.nextByte(true)
				if !ok {
					return flate.StatusAwait, nil
				}
				d.extraLenBuf[d.extraLenLen] = b
				d.extraLenLen++
			}
			d.extraWant = int(d.extraLenBuf[0]) | int(d.extraLenBuf[1])<<8
			d.extraBuf = make([]byte, 0, d.extraWant)
			d.state = dExtraData

		case dExtraData:
			for len(d.extraBuf) < d.extraWant {
				b, ok := d.nextByte(true)
				if !ok {
					return flate.StatusAwait, nil
				}
				d.extraBuf = append(d.extraBuf, b)
			}
			d.header.Extra = d.extraBuf
			if d.flg&flName != 0 {
				d.state = dName
			} else if d.flg&flComment != 0 {
				d.state = dComment
			} else if d.flg&flHCRC != 0 {
				d.state = dHCRC
			} else {
				d.state = dBody
			}

		case dName:
			for {
				b, ok := d.nextByte(true)
				if !ok {
					return flate.StatusAwait, nil
				}
				if b == 0 {
					break
				}
				d.nameBuf = append(d.nameBuf, b)
			}
			d.header.Name = string(d.nameBuf)
			if d.flg&flComment != 0 {
				d.state = dComment
			} else if d.flg&flHCRC != 0 {
				d.state = dHCRC
			} else {
				d.state = dBody
			}

		case dComment:
			for {
				b, ok := d.nextByte(true)
				if !ok {
					return flate.StatusAwait, nil
				}
				if b == 0 {
					break
				}
				d.commentBuf = append(d.commentBuf, b)
			}
			d.header.Comment = string(d.commentBuf)
			if d.flg&flHCRC != 0 {
				d.state = dHCRC
			} else {
				d.state = dBody
			}

		case dHCRC:
			for d.hcrcLen < 2 {
				b, ok := d.nextByte(false)
				if !ok {
					return flate.StatusAwait, nil
				}
				d.hcrcBuf[d.hcrcLen] = b
				d.hcrcLen++
			}
			want := uint32(d.hcrcBuf[0]) | uint32(d.hcrcBuf[1])<<8
			crc := checksum.NewCRC32()
			crc.Update(d.hdrAccum, 0, len(d.hdrAccum))
			if crc.Digest()&0xFFFF != want {
				return flate.StatusError, ErrInvalidHeaderChecksum
			}
			d.state = dBody

		case dBody:
			if d.inner == nil {
				var err error
				d.inner, err = flate.NewDecoder(15, checksum.NewCRC32())
				if err != nil {
					return flate.StatusError, err
				}
				d.inner.SetOutput(d.out)
				d.bodyBase = d.pos
				d.inner.Refill(d.in[d.pos:])
			}
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
				d.state = dTrailer
			}

		case dTrailer:
			for d.trlLen < len(d.trailer) {
				b, ok := d.nextByte(false)
				if !ok {
					return flate.StatusAwait, nil
				}
				d.trailer[d.trlLen] = b
				d.trlLen++
			}
			wantCRC := parseLE32(d.trailer[0:4])
			wantSize := parseLE32(d.trailer[4:8])
			haveCRC := d.inner.Window().Checksum()
			if haveCRC != wantCRC {
				return flate.StatusError, &ErrInvalidChecksum{Have: haveCRC, Want: wantCRC}
			}
			haveSize := d.totalOut + uint32(d.inner.UsedOut())
			if haveSize != wantSize {
				return flate.StatusError, &ErrInvalidSize{Have: haveSize, Want: wantSize}
			}
			d.state = dDone

		case dDone:
			return flate.StatusEnd, nil
		}
	}
}
