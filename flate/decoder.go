package flate

import (
	"github.com/clecat/decompress/internal/bitio"
	"github.com/clecat/decompress/internal/checksum"
	"github.com/clecat/decompress/internal/huffman"
	"github.com/clecat/decompress/internal/window"
	"github.com/clecat/decompress/internal/xlog"
)

var decLog = xlog.NewPackageLogger("clecat/decompress", "flate.decoder")

type decState int

const (
	decHeader decState = iota
	decStoredLen
	decStoredCopy
	decDynHeader
	decBlock
	decCopy
	decDone
	decError
)

// dynPhase steps through DYNAMIC_HEADER's sub-reads, each one resumable
// on its own: the teacher's readHuffman in zran/flate/inflate.go does
// this same HLIT/HDIST/HCLEN -> code-length RLE -> table-build sequence,
// just without suspension since it blocks on io.Reader instead.
type dynPhase int

const (
	dynCounts dynPhase = iota
	dynCLLengths
	dynLengths
	dynBuildTables
)

// pendingExtra tracks a decoded symbol that still needs its extra bits
// read before it can be committed — the atomicity seam every RFC 1951
// symbol-plus-extra-bits field needs so a suspension never forces
// re-decoding the symbol.
type pendingExtra struct {
	active bool
	base   int
	extra  uint
}

func (p *pendingExtra) take(r *bitio.Reader) (int, bool) {
	v, ok := r.Take(p.extra)
	if !ok {
		return 0, false
	}
	p.active = false
	return p.base + int(v), true
}

// Decoder runs RFC 1951's DEFLATE decompression state machine. It never
// blocks: Eval runs until the registered input is exhausted (StatusAwait),
// the registered output fills (StatusFlush), the final block ends (its
// end-of-block symbol, or the last byte of a stored block: StatusEnd), or
// the stream is malformed (StatusError).
type Decoder struct {
	wbits uint
	win   *window.Window
	r     bitio.Reader
	out   byteWriter

	state decState
	final bool
	err   error

	// STORED
	storedLen    int
	storedHdr    [4]byte
	storedHdrLen int

	// DYNAMIC_HEADER
	phase       dynPhase
	hlit, hdist int
	hclen       int
	clRaw       [huffman.NumCodeLenCodes]int
	clIndex     int
	clDecoder   huffman.Decoder
	lenAll      []int
	lenIndex    int
	prevLen     int
	rle         pendingExtra
	pendingRLESym int

	litTable  huffman.Decoder
	distTable huffman.Decoder

	// BLOCK / COPY
	lenExtra       pendingExtra
	pendingLenSym  int
	awaitingDist   bool
	distExtra      pendingExtra
	pendingDistSym int
	matchLength    int

	copyDistance  int
	copyRemaining int

	pendingLiteral     byte
	havePendingLiteral bool
}

var fixedLitTable, fixedDistTable huffman.Decoder

func init() {
	if !fixedLitTable.Build(huffman.FixedLitLengths) {
		panic("flate: fixed literal table failed to build")
	}
	if !fixedDistTable.Build(huffman.FixedDistLengths) {
		panic("flate: fixed distance table failed to build")
	}
}

// NewDecoder creates a Decoder with a fresh window of size 2^wbits. sum is
// the checksum capability the framing layer wants the window to
// accumulate (checksum.None() for raw RFC 1951 streams).
func NewDecoder(wbits uint, sum checksum.Hash) (*Decoder, error) {
	if wbits < 8 || wbits > 15 {
		return nil, ErrInvalidWBits
	}
	d := &Decoder{wbits: wbits}
	d.win = window.New(wbits, sum)
	d.state = decHeader
	return d, nil
}

// Window exposes the decoder's sliding window, e.g. so a framing layer
// can read its running checksum once decoding ends.
func (d *Decoder) Window() *window.Window { return d.win }

// Refill registers a new input slice, discarding any unread tail of the
// previous one (the caller owns that memory again once Refill returns).
func (d *Decoder) Refill(buf []byte) { d.r.SetInput(buf) }

// SetOutput registers a new output slice.
func (d *Decoder) SetOutput(buf []byte) { d.out.SetOutput(buf) }

// UsedIn reports how many bytes of the current input slice have been
// consumed.
func (d *Decoder) UsedIn() int { return d.r.Pos() }

// UnreadInput returns the unconsumed tail of the current input slice.
// Once Eval reports StatusEnd on a final block, the bit reader has been
// aligned to a byte boundary, so a framing layer (zlib, gzip) can parse
// whatever trailer follows directly from this slice.
func (d *Decoder) UnreadInput() []byte { return d.r.Tail() }

// UsedOut reports how many bytes of the current output slice have been
// written.
func (d *Decoder) UsedOut() int { return d.out.Pos() }

// Eval advances the decoder as far as the registered buffers allow.
func (d *Decoder) Eval() (Status, error) {
	for {
		switch d.state {
		case decHeader:
			if st, ok := d.stepHeader(); !ok {
				return st, d.err
			}
		case decStoredLen:
			if st, ok := d.stepStoredLen(); !ok {
				return st, d.err
			}
		case decStoredCopy:
			if st, ok := d.stepStoredCopy(); !ok {
				return st, d.err
			}
		case decDynHeader:
			if st, ok := d.stepDynHeader(); !ok {
				return st, d.err
			}
		case decBlock:
			if st, ok := d.stepBlock(); !ok {
				return st, d.err
			}
		case decCopy:
			if st, ok := d.stepCopy(); !ok {
				return st, d.err
			}
		case decDone:
			return StatusEnd, nil
		case decError:
			return StatusError, d.err
		}
	}
}

func (d *Decoder) fail(err error) (Status, bool) {
	d.err = err
	d.state = decError
	return StatusError, false
}

func (d *Decoder) stepHeader() (Status, bool) {
	v, ok := d.r.Take(3)
	if !ok {
		return StatusAwait, false
	}
	d.final = v&1 != 0
	switch btype := (v >> 1) & 3; btype {
	case 0:
		d.state = decStoredLen
	case 1:
		d.litTable = fixedLitTable
		d.distTable = fixedDistTable
		decLog.Debugf("fixed huffman block, final=%v", d.final)
		d.state = decBlock
	case 2:
		d.phase = dynCounts
		d.state = decDynHeader
	default:
		return d.fail(ErrInvalidBlockType)
	}
	return StatusEnd, true
}

func (d *Decoder) stepStoredLen() (Status, bool) {
	if d.storedHdrLen == 0 {
		d.r.AlignByte()
	}
	for d.storedHdrLen < 4 {
		n := d.r.TakeBytes(d.storedHdr[d.storedHdrLen:])
		if n == 0 {
			return StatusAwait, false
		}
		d.storedHdrLen += n
	}
	length := int(d.storedHdr[0]) | int(d.storedHdr[1])<<8
	nlength := int(d.storedHdr[2]) | int(d.storedHdr[3])<<8
	d.storedHdrLen = 0
	if length != nlength^0xFFFF {
		return d.fail(ErrInvalidStoredLength)
	}
	d.storedLen = length
	d.state = decStoredCopy
	return StatusEnd, true
}

func (d *Decoder) stepStoredCopy() (Status, bool) {
	for d.storedLen > 0 {
		avail := d.out.Avail()
		if avail == 0 {
			return StatusFlush, false
		}
		n := d.storedLen
		if n > avail {
			n = avail
		}
		var tmp [512]byte
		for n > 0 {
			chunk := n
			if chunk > len(tmp) {
				chunk = len(tmp)
			}
			got := d.r.TakeBytes(tmp[:chunk])
			if got == 0 {
				return StatusAwait, false
			}
			d.win.AppendSlice(tmp[:got])
			d.out.Write(tmp[:got])
			d.storedLen -= got
			n -= got
		}
	}
	if d.final {
		d.state = decDone
	} else {
		d.state = decHeader
	}
	return StatusEnd, true
}

func (d *Decoder) stepDynHeader() (Status, bool) {
	switch d.phase {
	case dynCounts:
		v, ok := d.r.Take(14)
		if !ok {
			return StatusAwait, false
		}
		d.hlit = int(v&0x1F) + 257
		d.hdist = int((v>>5)&0x1F) + 1
		d.hclen = int((v>>10)&0xF) + 4
		for i := range d.clRaw {
			d.clRaw[i] = 0
		}
		d.clIndex = 0
		d.phase = dynCLLengths
		return StatusEnd, true

	case dynCLLengths:
		for d.clIndex < d.hclen {
			v, ok := d.r.Take(3)
			if !ok {
				return StatusAwait, false
			}
			d.clRaw[huffman.CodeOrder[d.clIndex]] = int(v)
			d.clIndex++
		}
		if !d.clDecoder.Build(d.clRaw[:]) {
			return d.fail(ErrInvalidDictionary)
		}
		d.lenAll = make([]int, d.hlit+d.hdist)
		d.lenIndex = 0
		d.prevLen = 0
		d.pendingRLESym = -1
		d.phase = dynLengths
		return StatusEnd, true

	case dynLengths:
		total := d.hlit + d.hdist
		for d.lenIndex < total {
			if d.rle.active {
				n, ok := d.rle.take(&d.r)
				if !ok {
					return StatusAwait, false
				}
				if err := d.commitRLE(d.pendingRLESym, n, total); err != nil {
					return d.fail(err)
				}
				continue
			}
			sym, ok := d.clDecoder.Decode(&d.r)
			if !ok {
				return StatusAwait, false
			}
			switch {
			case sym < 16:
				d.lenAll[d.lenIndex] = sym
				d.lenIndex++
				d.prevLen = sym
			case sym == 16, sym == 17, sym == 18:
				base, extra := huffman.CodeLenExtra(sym)
				d.rle = pendingExtra{active: true, base: base, extra: uint(extra)}
				d.pendingRLESym = sym
			default:
				return d.fail(ErrInvalidDictionary)
			}
		}
		d.phase = dynBuildTables
		return StatusEnd, true

	case dynBuildTables:
		litLens := d.lenAll[:d.hlit]
		distLens := d.lenAll[d.hlit : d.hlit+d.hdist]
		if !d.litTable.Build(litLens) {
			return d.fail(ErrInvalidDictionary)
		}
		if !d.distTable.Build(distLens) {
			return d.fail(ErrInvalidDictionary)
		}
		decLog.Debugf("dynamic huffman block, hlit=%d hdist=%d final=%v", d.hlit, d.hdist, d.final)
		d.state = decBlock
		return StatusEnd, true
	}
	return d.fail(InternalError("unreachable dynamic header phase"))
}

func (d *Decoder) commitRLE(sym, count, total int) error {
	if d.lenIndex+count > total {
		return ErrInvalidDictionary
	}
	switch sym {
	case 16:
		if d.lenIndex == 0 {
			return ErrInvalidDictionary
		}
		for i := 0; i < count && d.lenIndex < total; i++ {
			d.lenAll[d.lenIndex] = d.prevLen
			d.lenIndex++
		}
	case 17, 18:
		for i := 0; i < count && d.lenIndex < total; i++ {
			d.lenAll[d.lenIndex] = 0
			d.lenIndex++
		}
		d.prevLen = 0
	}
	if d.lenIndex > total {
		return ErrInvalidDictionary
	}
	return nil
}

// stepBlock decodes one BLOCK-state symbol (spec.md §4.5 state 5), or
// resumes one of the three suspendable sub-phases a length/distance pair
// can leave in flight: pendingLenSym (length symbol decoded, its extra
// bits not yet read), awaitingDist (length resolved, distance symbol not
// yet decoded), pendingDistSym (distance symbol decoded, its extra bits
// not yet read). Each sub-phase is checked, in order, before a fresh
// symbol is decoded, so a suspension never forces re-decoding a symbol
// whose bits were already consumed.
func (d *Decoder) stepBlock() (Status, bool) {
	if d.havePendingLiteral {
		if !d.out.WriteByte(d.pendingLiteral) {
			return StatusFlush, false
		}
		d.havePendingLiteral = false
	}

	if d.pendingLenSym != 0 {
		n, ok := d.lenExtra.take(&d.r)
		if !ok {
			return StatusAwait, false
		}
		d.matchLength = n
		d.pendingLenSym = 0
		d.awaitingDist = true
	}

	if d.awaitingDist {
		sym, ok := d.distTable.Decode(&d.r)
		if !ok {
			return StatusAwait, false
		}
		if sym >= 30 {
			return d.fail(ErrInvalidDistanceCode)
		}
		d.distExtra = pendingExtra{active: true, base: huffman.DistBase[sym], extra: huffman.DistExtra[sym]}
		d.pendingDistSym = sym + 1
		d.awaitingDist = false
	}

	if d.pendingDistSym != 0 {
		dist, ok := d.distExtra.take(&d.r)
		if !ok {
			return StatusAwait, false
		}
		d.pendingDistSym = 0
		max := d.win.Fill()
		if dist <= 0 || dist > max {
			return d.fail(&ErrInvalidDistance{Distance: dist, Max: max})
		}
		d.copyDistance = dist
		d.copyRemaining = d.matchLength
		d.state = decCopy
		return StatusEnd, true
	}

	sym, ok := d.litTable.Decode(&d.r)
	if !ok {
		return StatusAwait, false
	}
	switch {
	case sym < 256:
		d.win.Append(byte(sym))
		if !d.out.WriteByte(byte(sym)) {
			d.pendingLiteral = byte(sym)
			d.havePendingLiteral = true
			return StatusFlush, false
		}
		return StatusEnd, true
	case sym == 256:
		if d.final {
			d.r.AlignByte()
			d.state = decDone
		} else {
			d.state = decHeader
		}
		return StatusEnd, true
	case sym <= 285:
		idx := sym - 257
		if idx >= len(huffman.LengthBase) {
			return d.fail(ErrInvalidBlockType)
		}
		d.lenExtra = pendingExtra{active: true, base: huffman.LengthBase[idx], extra: huffman.LengthExtra[idx]}
		d.pendingLenSym = sym
		n, ok := d.lenExtra.take(&d.r)
		if !ok {
			return StatusAwait, false
		}
		d.matchLength = n
		d.pendingLenSym = 0
		d.awaitingDist = true
		return StatusEnd, true
	default:
		return d.fail(ErrInvalidBlockType)
	}
}

func (d *Decoder) stepCopy() (Status, bool) {
	for d.copyRemaining > 0 {
		dst := d.out.buf[d.out.pos:]
		if len(dst) == 0 {
			return StatusFlush, false
		}
		if len(dst) > d.copyRemaining {
			dst = dst[:d.copyRemaining]
		}
		n := d.win.CopyMatch(d.copyDistance, d.copyRemaining, dst)
		d.out.pos += n
		d.copyRemaining -= n
		if n == 0 {
			return StatusFlush, false
		}
	}
	d.state = decBlock
	return StatusEnd, true
}
