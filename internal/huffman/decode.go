package huffman

import "github.com/clecat/decompress/internal/bitio"

// chunkBits is the width of the primary lookup table, a direct copy of the
// teacher's huffmanChunkBits. Any code no longer than this many bits
// decodes in a single table lookup; longer codes spill into an overflow
// link table indexed by their remaining high bits.
const chunkBits = 9
const numChunks = 1 << chunkBits
const countMask = 15
const valueShift = 4

// Decoder is a two-level canonical Huffman decode table, built from a
// length vector. For codes of at most chunkBits bits, chunk&countMask is
// the decoded symbol's bit length and chunk>>valueShift is the symbol
// itself. A primary entry whose count is chunkBits+1 instead points into
// links (chunk>>valueShift is the link index), and the link entry carries
// the longer code's real length and symbol.
type Decoder struct {
	min      int
	chunks   [numChunks]uint32
	links    [][]uint32
	linkMask uint32
}

// Build constructs d from lengths, a per-symbol code-length vector (0
// meaning the symbol is unused). It reports false if lengths describes an
// over-subscribed or otherwise invalid Huffman tree; the flate decoder
// reports such a rejection as ErrInvalidDictionary.
func (d *Decoder) Build(lengths []int) bool {
	*d = Decoder{}

	var count [MaxCodeLen + 1]int
	var min, max int
	for _, n := range lengths {
		if n == 0 {
			continue
		}
		if n < 0 || n > MaxCodeLen {
			return false
		}
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
		count[n]++
	}
	if max == 0 {
		return false
	}
	if !kraftOK(count[:], max) {
		return false
	}

	d.min = min
	var linkBits uint
	var numLinks int
	if max > chunkBits {
		linkBits = uint(max - chunkBits)
		numLinks = 1 << linkBits
		d.linkMask = uint32(numLinks - 1)
	}

	code := 0
	var nextCode [MaxCodeLen + 1]int
	for i := min; i <= max; i++ {
		if i == chunkBits+1 {
			link := code >> 1
			if numChunks < link {
				return false
			}
			d.links = make([][]uint32, numChunks-link)
			for j := link; j < numChunks; j++ {
				rev := bitio.Reverse(uint32(j), chunkBits)
				off := j - link
				d.chunks[rev] = uint32(off<<valueShift) | uint32(i)
				d.links[off] = make([]uint32, 1<<linkBits)
			}
		}
		n := count[i]
		nextCode[i] = code
		code += n
		code <<= 1
	}

	for symbol, n := range lengths {
		if n == 0 {
			continue
		}
		c := nextCode[n]
		nextCode[n]++
		chunk := uint32(symbol<<valueShift) | uint32(n)
		rev := bitio.Reverse(uint32(c), uint(n))
		if n <= chunkBits {
			for off := int(rev); off < numChunks; off += 1 << uint(n) {
				d.chunks[off] = chunk
			}
		} else {
			value := d.chunks[rev&uint32(numChunks-1)] >> valueShift
			if int(value) >= len(d.links) {
				return false
			}
			linktab := d.links[value]
			high := rev >> chunkBits
			for off := int(high); off < numLinks; off += 1 << uint(n-chunkBits) {
				linktab[off] = chunk
			}
		}
	}
	return true
}

// kraftOK checks that a set of code lengths is neither over- nor (except
// for the single-symbol degenerate case RFC 1951 allows) under-subscribed:
// the Kraft sum of 2^-length over every used code must equal exactly 1,
// matching google/wuffs's lib/flatecut construct() validation.
func kraftOK(count []int, max int) bool {
	remaining := 1
	total := 0
	for i := 1; i <= max; i++ {
		remaining *= 2
		if remaining < count[i] {
			return false
		}
		remaining -= count[i]
		total += count[i]
	}
	if remaining != 0 {
		// A tree with exactly one code (length 1, unused sibling) is the
		// sole degenerate case RFC 1951 permits.
		if total == 1 {
			return true
		}
		return false
	}
	return true
}

// Decode reads the next symbol from r using d's table. It returns
// ok=false if r does not currently hold enough bits to resolve a code;
// the caller must Await more input and retry, since no bits are consumed
// on failure.
func (d *Decoder) Decode(r *bitio.Reader) (symbol int, ok bool) {
	if d.min == 0 {
		return 0, false
	}
	peek, width, have := r.Peek(chunkBits, uint(d.min))
	if !have {
		return 0, false
	}
	chunk := d.chunks[peek]
	n := uint(chunk & countMask)
	if n == 0 {
		return 0, false
	}
	if n <= chunkBits {
		if width < n {
			return 0, false
		}
		r.Drop(n)
		return int(chunk >> valueShift), true
	}

	// Code spills into an overflow link table; peek as many bits as the
	// longest code can need and let the link entry say how many it used.
	linkIdx := chunk >> valueShift
	if int(linkIdx) >= len(d.links) {
		return 0, false
	}
	full, fullWidth, haveFull := r.Peek(MaxCodeLen, n)
	if !haveFull {
		return 0, false
	}
	high := full >> chunkBits
	linkChunk := d.links[linkIdx][high&d.linkMask]
	ln := uint(linkChunk & countMask)
	if ln == 0 || fullWidth < ln {
		return 0, false
	}
	r.Drop(ln)
	return int(linkChunk >> valueShift), true
}
