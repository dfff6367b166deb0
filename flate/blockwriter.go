package flate

import (
	"github.com/clecat/decompress/internal/huffman"
	"github.com/clecat/decompress/internal/lz77"
)

// clToken is one emitted symbol of the 19-symbol code-length alphabet:
// either a literal code length (0..15, no extra bits) or one of the three
// RLE repeat codes (16/17/18, whose extra field carries nbits of value on
// the wire per RFC 1951 §3.2.7).
type clToken struct {
	symbol int
	extra  int
	nbits  uint
}

// writeBlock emits hunks as a single DEFLATE block, final marking BFINAL.
// Level 0 always picks a Stored block (hunks are literal-only at that
// level); every other level builds a Dynamic Huffman block from the
// frequencies bumpFrequency has accumulated since the last block, except
// for an empty hunk buffer, which gets a minimal Fixed Huffman block
// carrying nothing but the end-of-block symbol (this is what a
// partial_flush directive and a flush on an otherwise-idle encoder both
// reduce to).
//
// This always picks Dynamic over Fixed whenever there is real content,
// forgoing the cost estimate a production encoder would run to choose
// between them — a deliberate simplification.
func (e *Encoder) writeBlock(hunks []lz77.Hunk, final bool) bool {
	bfinal := uint32(0)
	if final {
		bfinal = 1
	}

	switch {
	case len(hunks) == 0:
		return e.writeFixedBlock(hunks, bfinal)
	case e.level == 0:
		return e.writeStoredBlock(hunks, bfinal)
	default:
		return e.writeDynamicBlock(hunks, bfinal)
	}
}

func (e *Encoder) writeStoredBlock(hunks []lz77.Hunk, bfinal uint32) bool {
	raw := make([]byte, 0, len(hunks))
	for _, h := range hunks {
		raw = append(raw, h.Literal)
	}
	if !e.bw.PutBits(bfinal, 1) || !e.bw.PutBits(0, 2) {
		return false
	}
	if !e.bw.AlignByte() {
		return false
	}
	n := len(raw)
	if !e.bw.PutBits(uint32(n&0xFFFF), 16) || !e.bw.PutBits(uint32(^n)&0xFFFF, 16) {
		return false
	}
	for _, b := range raw {
		if !e.bw.PutBits(uint32(b), 8) {
			return false
		}
	}
	return true
}

func (e *Encoder) writeFixedBlock(hunks []lz77.Hunk, bfinal uint32) bool {
	if !e.bw.PutBits(bfinal, 1) || !e.bw.PutBits(1, 2) {
		return false
	}
	lit := huffman.BuildFromLengths(huffman.FixedLitLengths)
	dist := huffman.BuildFromLengths(huffman.FixedDistLengths)
	if !e.emitHunks(hunks, lit, dist) {
		return false
	}
	return e.bw.PutBits(lit.Codes[256], uint(lit.Lengths[256]))
}

func (e *Encoder) writeDynamicBlock(hunks []lz77.Hunk, bfinal uint32) bool {
	freqLit := e.freq.Lit
	freqDist := e.freq.Dist
	freqLit[256]++
	anyDist := false
	for _, n := range freqDist {
		if n > 0 {
			anyDist = true
			break
		}
	}
	if !anyDist {
		freqDist[0] = 1
	}
	e.freq = Frequencies{}

	lit := huffman.BuildFromFrequencies(freqLit[:], huffman.MaxLit)
	dist := huffman.BuildFromFrequencies(freqDist[:], huffman.MaxDist)

	litLen := lastNonzero(lit.Lengths, 256) + 1
	if litLen < 257 {
		litLen = 257
	}
	distLen := lastNonzero(dist.Lengths, 0) + 1
	if distLen < 1 {
		distLen = 1
	}

	combined := make([]int, 0, litLen+distLen)
	combined = append(combined, lit.Lengths[:litLen]...)
	combined = append(combined, dist.Lengths[:distLen]...)
	toks := emitCodeLengths(combined)

	var clFreq [huffman.NumCodeLenCodes]int
	for _, t := range toks {
		clFreq[t.symbol]++
	}
	cl := huffman.BuildFromFrequencies(clFreq[:], huffman.NumCodeLenCodes)

	numCL := huffman.NumCodeLenCodes
	for numCL > 4 && cl.Lengths[huffman.CodeOrder[numCL-1]] == 0 {
		numCL--
	}

	if !e.bw.PutBits(bfinal, 1) || !e.bw.PutBits(2, 2) {
		return false
	}
	if !e.bw.PutBits(uint32(litLen-257), 5) || !e.bw.PutBits(uint32(distLen-1), 5) {
		return false
	}
	if !e.bw.PutBits(uint32(numCL-4), 4) {
		return false
	}
	for i := 0; i < numCL; i++ {
		if !e.bw.PutBits(uint32(cl.Lengths[huffman.CodeOrder[i]]), 3) {
			return false
		}
	}
	for _, t := range toks {
		if !e.bw.PutBits(cl.Codes[t.symbol], uint(cl.Lengths[t.symbol])) {
			return false
		}
		if t.nbits > 0 {
			if !e.bw.PutBits(uint32(t.extra), t.nbits) {
				return false
			}
		}
	}

	if !e.emitHunks(hunks, lit, dist) {
		return false
	}
	return e.bw.PutBits(lit.Codes[256], uint(lit.Lengths[256]))
}

// emitHunks writes every literal/match hunk's Huffman-coded symbol and
// extra bits, but not the trailing end-of-block symbol — callers append
// that themselves once the tree it belongs to is in scope.
func (e *Encoder) emitHunks(hunks []lz77.Hunk, lit, dist huffman.Table) bool {
	for _, h := range hunks {
		if h.Kind == lz77.Lit {
			if !e.bw.PutBits(lit.Codes[h.Literal], uint(lit.Lengths[h.Literal])) {
				return false
			}
			continue
		}
		length := h.Length + minMatchBias
		lsym := lengthSymbol(length)
		if !e.bw.PutBits(lit.Codes[257+lsym], uint(lit.Lengths[257+lsym])) {
			return false
		}
		if extra := huffman.LengthExtra[lsym]; extra > 0 {
			if !e.bw.PutBits(uint32(length-huffman.LengthBase[lsym]), extra) {
				return false
			}
		}

		distance := h.Distance + 1
		dsym := distSymbol(distance)
		if !e.bw.PutBits(dist.Codes[dsym], uint(dist.Lengths[dsym])) {
			return false
		}
		if extra := huffman.DistExtra[dsym]; extra > 0 {
			if !e.bw.PutBits(uint32(distance-huffman.DistBase[dsym]), extra) {
				return false
			}
		}
	}
	return true
}

const minMatchBias = 3

func lastNonzero(lengths []int, floor int) int {
	last := floor
	for i, n := range lengths {
		if n != 0 && i > last {
			last = i
		}
	}
	return last
}

// emitCodeLengths runs RFC 1951's code-length RLE over a combined
// literal/length + distance length vector: runs of identical zero
// lengths collapse into symbol 17 (3..10 repeats) or 18 (11..138), runs
// of identical nonzero lengths collapse into one literal code followed by
// symbol 16 (3..6 further repeats). This is a from-scratch greedy
// emitter rather than a port of zlib's scan_tree state machine; it always
// produces a valid RFC 1951 sequence, just not byte-identical output to
// what zlib itself would choose.
func emitCodeLengths(lengths []int) []clToken {
	var toks []clToken
	n := len(lengths)
	i := 0
	for i < n {
		val := lengths[i]
		j := i + 1
		for j < n && lengths[j] == val {
			j++
		}
		run := j - i

		if val == 0 {
			for run > 0 {
				switch {
				case run >= 11:
					c := run
					if c > 138 {
						c = 138
					}
					toks = append(toks, clToken{18, c - 11, 7})
					run -= c
				case run >= 3:
					c := run
					if c > 10 {
						c = 10
					}
					toks = append(toks, clToken{17, c - 3, 3})
					run -= c
				default:
					toks = append(toks, clToken{0, 0, 0})
					run--
				}
			}
		} else {
			toks = append(toks, clToken{val, 0, 0})
			run--
			for run > 0 {
				if run >= 3 {
					c := run
					if c > 6 {
						c = 6
					}
					toks = append(toks, clToken{16, c - 3, 2})
					run -= c
				} else {
					toks = append(toks, clToken{val, 0, 0})
					run--
				}
			}
		}
		i = j
	}
	return toks
}
