package huffman

import (
	"sort"

	"github.com/clecat/decompress/internal/bitio"
)

// Table is an encoder's view of a canonical Huffman code: for every used
// symbol, its code length and its code value (already bit-reversed into
// the LSB-first order bitio.Writer.PutBits expects, so callers never
// reverse it themselves).
type Table struct {
	Lengths []int
	Codes   []uint32
}

// BuildFromFrequencies derives a length-limited canonical Huffman code for
// alphabetSize symbols from their frequencies, then assigns codes.
// Symbols with zero frequency get length 0 (unused). It never produces a
// code longer than MaxCodeLen.
//
// The length computation is grounded on flanglet/kanzi-go's
// HuffmanEncoder.computeCodeLengths: rank the used symbols by increasing
// frequency, then run the in-place Moffat package-merge pass
// (computeInPlaceSizesPhase1 merges the two lightest weights at each step
// exactly as a textbook Huffman-tree build would, but overwrites the
// frequency slice in place instead of allocating tree nodes;
// computeInPlaceSizesPhase2 walks the merge history back-to-front to
// recover each leaf's depth, i.e. its code length). That produces an
// optimal (unbounded-length) prefix code; RFC 1951 additionally requires
// every code to fit in 15 bits, so a length-limiting rebalance follows,
// the same reshuffle zlib's gen_bitlen uses: clamp the too-long codes to
// the limit, then repeatedly move the longest code still under the limit
// one bit deeper and lift one clamped code up beside it, until the Kraft
// sum is back at exactly 1.
func BuildFromFrequencies(freq []int, alphabetSize int) Table {
	lengths := make([]int, alphabetSize)
	ranks := make([]int, 0, alphabetSize)
	for s := 0; s < alphabetSize; s++ {
		if freq[s] > 0 {
			ranks = append(ranks, s)
		}
	}

	switch len(ranks) {
	case 0:
		return Table{Lengths: lengths, Codes: make([]uint32, alphabetSize)}
	case 1:
		lengths[ranks[0]] = 1
		return assignCodes(lengths)
	}

	sort.Slice(ranks, func(i, j int) bool {
		fi, fj := freq[ranks[i]], freq[ranks[j]]
		if fi != fj {
			return fi < fj
		}
		return ranks[i] < ranks[j]
	})

	weights := make([]int, len(ranks))
	for i, s := range ranks {
		weights[i] = freq[s]
	}
	computeInPlaceSizesPhase1(weights)
	computeInPlaceSizesPhase2(weights)

	for i, s := range ranks {
		lengths[s] = weights[i]
	}
	limitLengths(lengths, ranks)
	return assignCodes(lengths)
}

// computeInPlaceSizesPhase1 overwrites data (sorted ascending by weight)
// with, at each slot t, either the running merge sum (for slots that
// become internal nodes) or leaves the original weight in place; it
// records at data[r] the index t of the internal node a leaf was folded
// into, which phase2 walks back to recover depths. This is copied
// structurally from flanglet/kanzi-go's function of the same name.
func computeInPlaceSizesPhase1(data []int) {
	n := len(data)
	for s, r, t := 0, 0, 0; t < n-1; t++ {
		sum := 0
		for i := 0; i < 2; i++ {
			if s >= n || (r < t && data[r] < data[s]) {
				sum += data[r]
				data[r] = t
				r++
			} else {
				sum += data[s]
				if s > t {
					data[s] = 0
				}
				s++
			}
		}
		data[t] = sum
	}
}

// computeInPlaceSizesPhase2 walks the merge tree phase1 built, level by
// level from the root, and overwrites data with each leaf's depth (its
// final code length). Copied structurally from flanglet/kanzi-go.
func computeInPlaceSizesPhase2(data []int) {
	n := len(data)
	levelTop := n - 2
	depth := 1
	i := n
	totalNodesAtLevel := 2

	for i > 0 {
		k := levelTop
		for k > 0 && data[k-1] >= levelTop {
			k--
		}
		internalNodesAtLevel := levelTop - k
		leavesAtLevel := totalNodesAtLevel - internalNodesAtLevel
		for j := 0; j < leavesAtLevel; j++ {
			i--
			data[i] = depth
		}
		totalNodesAtLevel = internalNodesAtLevel << 1
		levelTop = k
		depth++
	}
}

// limitLengths clamps any code in lengths that exceeds MaxCodeLen, then
// restores the Kraft equality (sum of 2^-length over every used symbol
// equals 1), which the clamp pushed above 1. Each pass moves the longest
// code still shorter than MaxCodeLen one bit deeper and lifts one
// MaxCodeLen code up to the same new length, lowering the scaled Kraft
// sum by exactly one unit. ranks lists the used symbols by ascending
// frequency; the lifted code is the most frequent one at MaxCodeLen.
func limitLengths(lengths []int, ranks []int) {
	overflow := 0
	for _, s := range ranks {
		if lengths[s] > MaxCodeLen {
			overflow += lengths[s] - MaxCodeLen
			lengths[s] = MaxCodeLen
		}
	}
	if overflow == 0 {
		return
	}

	// Kraft sum deficit, scaled by 2^MaxCodeLen so it stays integral.
	unit := 1 << uint(MaxCodeLen)
	deficit := 0
	for _, s := range ranks {
		deficit += unit >> uint(lengths[s])
	}
	deficit -= unit

	// deficit > 0 means the clamp left the tree over-subscribed; each
	// pass below pays back exactly one unit of it.
	for ; deficit > 0; deficit-- {
		short, long := -1, -1
		for _, s := range ranks {
			if lengths[s] < MaxCodeLen && (short < 0 || lengths[s] > lengths[short]) {
				short = s
			} else if lengths[s] == MaxCodeLen {
				long = s
			}
		}
		lengths[short]++
		lengths[long] = lengths[short]
	}
}

// BuildFromLengths assigns canonical codes to an already-decided length
// vector, e.g. RFC 1951's fixed literal/length and distance tables, which
// need no frequency-driven construction step.
func BuildFromLengths(lengths []int) Table {
	return assignCodes(append([]int(nil), lengths...))
}

// assignCodes hands out canonical codes to a length vector: symbols
// sorted by (length, symbol value) get sequential codes within each
// length, per RFC 1951 section 3.2.2, bumped left one bit whenever the
// length increases. This mirrors flanglet/kanzi-go's
// generateCanonicalCodes, and the codes returned are bit-reversed here so
// callers can hand them straight to bitio.Writer.PutBits.
func assignCodes(lengths []int) Table {
	type entry struct{ symbol, length int }
	var used []entry
	for s, n := range lengths {
		if n > 0 {
			used = append(used, entry{s, n})
		}
	}
	sort.Slice(used, func(i, j int) bool {
		if used[i].length != used[j].length {
			return used[i].length < used[j].length
		}
		return used[i].symbol < used[j].symbol
	})

	codes := make([]uint32, len(lengths))
	if len(used) == 0 {
		return Table{Lengths: lengths, Codes: codes}
	}

	code := uint32(0)
	length := used[0].length
	for _, e := range used {
		if e.length > length {
			code <<= uint(e.length - length)
			length = e.length
		}
		codes[e.symbol] = bitio.Reverse(code, uint(length))
		code++
	}
	return Table{Lengths: lengths, Codes: codes}
}
