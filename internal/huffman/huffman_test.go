package huffman

import (
	"math/rand"
	"testing"

	"github.com/clecat/decompress/internal/bitio"
)

// roundTrip writes every symbol's code (via a Table built from
// lengths) to a bit writer, then decodes them back with a Decoder built
// from the same lengths, checking the round trip is exact.
func roundTrip(t *testing.T, lengths []int, symbols []int) {
	t.Helper()
	enc := BuildFromLengths(lengths)

	var w bitio.Writer
	out := make([]byte, 4096)
	w.SetOutput(out)
	for _, s := range symbols {
		if enc.Lengths[s] == 0 {
			t.Fatalf("symbol %d has zero length in the encode table", s)
		}
		if !w.PutBits(enc.Codes[s], uint(enc.Lengths[s])) {
			t.Fatalf("PutBits suspended unexpectedly")
		}
	}
	w.AlignByte()

	var dec Decoder
	if !dec.Build(lengths) {
		t.Fatalf("Decoder.Build rejected a length vector the encoder just used")
	}
	var r bitio.Reader
	r.SetInput(out[:w.Pos()])
	for i, want := range symbols {
		got, ok := dec.Decode(&r)
		if !ok {
			t.Fatalf("symbol %d: Decode failed to resolve a code", i)
		}
		if got != want {
			t.Fatalf("symbol %d: decoded %d, want %d", i, got, want)
		}
	}
}

func TestFixedTablesRoundTrip(t *testing.T) {
	symbols := []int{0, 65, 143, 144, 255, 256, 279, 280, 287}
	roundTrip(t, FixedLitLengths, symbols)
	roundTrip(t, FixedDistLengths, []int{0, 5, 10, 29})
}

func TestBuildFromFrequenciesRoundTrip(t *testing.T) {
	freq := make([]int, MaxLit)
	// A skewed distribution: a handful of very common symbols, a long
	// tail of rare ones, forcing a real range of code lengths.
	freq[0] = 1000
	freq[1] = 500
	freq[2] = 250
	for i := 3; i < 50; i++ {
		freq[i] = 1
	}
	freq[256] = 1 // end-of-block always present

	tbl := BuildFromFrequencies(freq, MaxLit)
	var used []int
	for s, n := range tbl.Lengths {
		if n > 0 {
			used = append(used, s)
		}
	}
	if len(used) == 0 {
		t.Fatal("no symbols were assigned codes")
	}

	// Emit each used symbol twice, then decode.
	symbols := append(append([]int(nil), used...), used...)
	roundTrip(t, tbl.Lengths, symbols)
}

func TestBuildFromFrequenciesSingleSymbol(t *testing.T) {
	freq := make([]int, 8)
	freq[3] = 42
	tbl := BuildFromFrequencies(freq, 8)
	if tbl.Lengths[3] != 1 {
		t.Fatalf("single-symbol alphabet should get a 1-bit code, got %d", tbl.Lengths[3])
	}
	roundTrip(t, tbl.Lengths, []int{3, 3, 3})
}

func TestBuildFromFrequenciesAllZero(t *testing.T) {
	freq := make([]int, 8)
	tbl := BuildFromFrequencies(freq, 8)
	for s, n := range tbl.Lengths {
		if n != 0 {
			t.Fatalf("symbol %d got nonzero length %d in an all-zero frequency table", s, n)
		}
	}
}

func TestLengthsNeverExceedMaxCodeLen(t *testing.T) {
	// A Fibonacci-like frequency skew is the classic way to force Huffman
	// tree depth past 15 bits, exercising limitLengths's rebalance.
	n := 40
	freq := make([]int, n)
	freq[0], freq[1] = 1, 1
	for i := 2; i < n; i++ {
		freq[i] = freq[i-1] + freq[i-2]
	}
	tbl := BuildFromFrequencies(freq, n)
	for s, l := range tbl.Lengths {
		if l > MaxCodeLen {
			t.Fatalf("symbol %d has length %d, exceeds MaxCodeLen %d", s, l, MaxCodeLen)
		}
	}
	var used []int
	for s, l := range tbl.Lengths {
		if l > 0 {
			used = append(used, s)
		}
	}
	roundTrip(t, tbl.Lengths, used)
}

func TestDecoderBuildRejectsOversubscribedTree(t *testing.T) {
	// Every symbol claiming length 1 is impossible for more than 2 symbols.
	lengths := []int{1, 1, 1}
	var dec Decoder
	if dec.Build(lengths) {
		t.Fatal("Build should reject an over-subscribed code")
	}
}

func TestDecoderBuildAcceptsUndersubscribedDegenerate(t *testing.T) {
	// RFC 1951 allows the single-symbol degenerate case (one code, length 1).
	lengths := []int{0, 1, 0, 0}
	var dec Decoder
	if !dec.Build(lengths) {
		t.Fatal("Build should accept the single-used-symbol degenerate case")
	}
}

func TestRandomAlphabetRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	freq := make([]int, MaxLit)
	for i := range freq {
		if rng.Intn(3) == 0 {
			freq[i] = rng.Intn(500) + 1
		}
	}
	freq[256] = 1
	tbl := BuildFromFrequencies(freq, MaxLit)

	var symbols []int
	for i := 0; i < 500; i++ {
		s := rng.Intn(MaxLit)
		if tbl.Lengths[s] > 0 {
			symbols = append(symbols, s)
		}
	}
	roundTrip(t, tbl.Lengths, symbols)
}
