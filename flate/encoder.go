package flate

import (
	"github.com/clecat/decompress/internal/bitio"
	"github.com/clecat/decompress/internal/huffman"
	"github.com/clecat/decompress/internal/lz77"
	"github.com/clecat/decompress/internal/xlog"
)

var encLog = xlog.NewPackageLogger("clecat/decompress", "flate.encoder")

// FlushMode is one of the four directives spec.md §4.4 names.
type FlushMode int

const (
	NoFlush FlushMode = iota
	PartialFlush
	SyncFlush
	FullFlush
	finishFlush
)

const maxHunksPerBlock = 1 << 14

type encState int

const (
	encCollect encState = iota
	encDrain
	encAlignFinish
	encDone
)

// Frequencies is the exported literal/length and distance weight pair a
// caller can snapshot and restore via GetFrequencies/SetFrequencies
// (spec.md §4.4, §9 "Frequencies import/export").
type Frequencies struct {
	Lit  [huffman.MaxLit]int
	Dist [huffman.MaxDist]int
}

// Encoder runs RFC 1951's DEFLATE compression as a push-style session: it
// never blocks on I/O, only ever returning StatusAwait (needs more
// registered input), StatusFlush (needs more registered output), or
// StatusEnd once Finish's block has been written.
type Encoder struct {
	level int
	wbits uint

	finder  *lz77.Finder
	all     []byte // every input byte seen so far; lz77 matches against this
	already int     // how much of all the finder has scanned

	curInput []byte
	curPos   int
	flushAt  FlushMode // directive to act on once curInput is exhausted
	haveFlush bool
	finishing bool

	hunks []lz77.Hunk
	freq  Frequencies

	bw    bitio.Writer
	state encState
	err   error
}

// NewEncoder creates an Encoder. level is 0..9, wbits is 8..15.
func NewEncoder(level int, wbits uint) (*Encoder, error) {
	f, err := lz77.New(level, wbits)
	switch err {
	case nil:
	case lz77.ErrInvalidLevel:
		return nil, ErrInvalidLevel
	case lz77.ErrInvalidWBits:
		return nil, ErrInvalidWBits
	default:
		return nil, err
	}
	return &Encoder{level: level, wbits: wbits, finder: f, state: encCollect}, nil
}

// Write registers an input slice to be compressed, tagged with the flush
// directive to act on once the slice is fully consumed. It corresponds to
// spec.md's no_flush/partial_flush/sync_flush/full_flush(off, len, state)
// family, collapsed into one call since Go slices already carry their own
// bounds.
func (e *Encoder) Write(p []byte, flush FlushMode) {
	e.curInput = p
	e.curPos = 0
	e.flushAt = flush
	e.haveFlush = true
}

// Finish marks the next flush as terminal: once the currently registered
// input drains, the encoder emits its last block with BFINAL=1 and pads
// to a byte boundary.
func (e *Encoder) Finish() { e.finishing = true }

// SetOutput registers a new output slice.
func (e *Encoder) SetOutput(buf []byte) { e.bw.SetOutput(buf) }

// UsedIn reports how many bytes of the current input slice have been
// consumed.
func (e *Encoder) UsedIn() int { return e.curPos }

// UsedOut reports how many bytes of the current output slice have been
// written.
func (e *Encoder) UsedOut() int { return e.bw.Pos() }

// BitsRemaining reports how many bits are buffered in the bit writer's
// accumulator but not yet emitted as a full byte.
func (e *Encoder) BitsRemaining() uint { return e.bw.PendingBits() }

// GetFrequencies exports the encoder's current literal/length and
// distance weight tables.
func (e *Encoder) GetFrequencies() Frequencies { return e.freq }

// SetFrequencies imports a frequency table, replacing the encoder's own.
// When paranoid is true, every symbol the pending hunk buffer actually
// uses must already have a strictly positive weight in f, or this
// returns ErrParanoidFrequencies and leaves the encoder's frequencies
// unchanged.
func (e *Encoder) SetFrequencies(f Frequencies, paranoid bool) error {
	if paranoid {
		seen := make(map[int]bool)
		seen[256] = true
		for _, h := range e.hunks {
			if h.Kind == lz77.Lit {
				seen[int(h.Literal)] = true
			} else {
				seen[257+lengthSymbol(h.Length+3)] = true
				if f.Dist[distSymbol(h.Distance+1)] <= 0 {
					return ErrParanoidFrequencies
				}
			}
		}
		for sym := range seen {
			if sym < len(f.Lit) && f.Lit[sym] <= 0 {
				return ErrParanoidFrequencies
			}
		}
	}
	e.freq = f
	return nil
}

// Eval advances the encoder as far as the registered buffers allow.
func (e *Encoder) Eval() (Status, error) {
	for {
		switch e.state {
		case encCollect:
			if st, ok := e.stepCollect(); !ok {
				return st, e.err
			}
		case encDrain:
			if st, ok := e.stepDrain(); !ok {
				return st, e.err
			}
		case encAlignFinish:
			if st, ok := e.stepAlignFinish(); !ok {
				return st, e.err
			}
		case encDone:
			return StatusEnd, nil
		}
	}
}

func (e *Encoder) stepCollect() (Status, bool) {
	if e.curPos < len(e.curInput) {
		chunk := e.curInput[e.curPos:]
		e.all = append(e.all, chunk...)
		e.curPos = len(e.curInput)

		newHunks := e.finder.Find(e.all, e.already)
		e.already = len(e.all)
		for _, h := range newHunks {
			e.bumpFrequency(h)
		}
		e.hunks = append(e.hunks, newHunks...)
	}

	if len(e.hunks) >= maxHunksPerBlock {
		e.state = encDrain
		return StatusEnd, true
	}

	if e.curPos >= len(e.curInput) && e.haveFlush {
		e.haveFlush = false
		if e.finishing {
			e.state = encDrain
			return StatusEnd, true
		}
		switch e.flushAt {
		case NoFlush:
			return StatusAwait, false
		default:
			e.state = encDrain
			return StatusEnd, true
		}
	}
	return StatusAwait, false
}

func (e *Encoder) bumpFrequency(h lz77.Hunk) {
	if h.Kind == lz77.Lit {
		e.freq.Lit[h.Literal]++
		return
	}
	e.freq.Lit[257+lengthSymbol(h.Length+3)]++
	e.freq.Dist[distSymbol(h.Distance+1)]++
}

func (e *Encoder) stepDrain() (Status, bool) {
	final := e.finishing && e.curPos >= len(e.curInput)
	if len(e.hunks) > 0 || final {
		encLog.Debugf("emitting block: %d hunks, final=%v", len(e.hunks), final)
		if !e.writeBlock(e.hunks, final) {
			return StatusFlush, false
		}
		e.hunks = e.hunks[:0]
	}

	switch {
	case final:
		e.state = encAlignFinish
		return StatusEnd, true
	case e.flushAt == PartialFlush:
		if !e.writeEmptyFixedBlock() {
			return StatusFlush, false
		}
	case e.flushAt == SyncFlush, e.flushAt == FullFlush:
		if !e.writeSyncMarker() {
			return StatusFlush, false
		}
		if e.flushAt == FullFlush {
			e.freq = Frequencies{}
		}
	}
	e.state = encCollect
	return StatusEnd, true
}

func (e *Encoder) stepAlignFinish() (Status, bool) {
	if !e.bw.AlignByte() {
		return StatusFlush, false
	}
	e.state = encDone
	return StatusEnd, true
}

// writeSyncMarker emits an empty, byte-aligned stored block: 00 00 00 FF
// FF, spec.md §4.4's sync_flush payload.
func (e *Encoder) writeSyncMarker() bool {
	if !e.bw.PutBits(0, 3) {
		return false
	}
	if !e.bw.AlignByte() {
		return false
	}
	if !e.bw.PutBits(0, 16) || !e.bw.PutBits(0xFFFF, 16) {
		return false
	}
	return true
}

func (e *Encoder) writeEmptyFixedBlock() bool {
	return e.writeBlock(nil, false)
}

// lengthSymbol maps an on-wire match length (3..258) to the index 0..28 of
// its length symbol in LengthBase (the symbol itself is 257 plus that
// index). Scanning LengthBase from the top works because its ranges
// are contiguous and monotonic, with length 258 (the single case two
// entries could otherwise claim) resolved correctly by checking the
// highest base first.
func lengthSymbol(length int) int {
	for i := len(huffman.LengthBase) - 1; i >= 0; i-- {
		if length >= huffman.LengthBase[i] {
			return i
		}
	}
	return 0
}

func distSymbol(dist int) int {
	for i := len(huffman.DistBase) - 1; i >= 0; i-- {
		if dist >= huffman.DistBase[i] {
			return i
		}
	}
	return 0
}
