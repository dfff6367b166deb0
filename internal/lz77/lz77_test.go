package lz77

import (
	"bytes"
	"math/rand"
	"testing"
)

// reconstruct replays a hunk sequence the way a DEFLATE decoder would,
// resolving each match against the bytes already reconstructed.
func reconstruct(hunks []Hunk) []byte {
	var out []byte
	for _, h := range hunks {
		switch h.Kind {
		case Lit:
			out = append(out, h.Literal)
		case Match:
			length := h.Length + minMatch
			distance := h.Distance + 1
			start := len(out) - distance
			for i := 0; i < length; i++ {
				out = append(out, out[start+i])
			}
		}
	}
	return out
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	if _, err := New(-1, 15); err != ErrInvalidLevel {
		t.Fatalf("level -1: err = %v, want ErrInvalidLevel", err)
	}
	if _, err := New(10, 15); err != ErrInvalidLevel {
		t.Fatalf("level 10: err = %v, want ErrInvalidLevel", err)
	}
	if _, err := New(6, 7); err != ErrInvalidWBits {
		t.Fatalf("wbits 7: err = %v, want ErrInvalidWBits", err)
	}
	if _, err := New(6, 16); err != ErrInvalidWBits {
		t.Fatalf("wbits 16: err = %v, want ErrInvalidWBits", err)
	}
}

func TestLevelZeroIsLiteralOnly(t *testing.T) {
	f, err := New(0, 15)
	if err != nil {
		t.Fatal(err)
	}
	src := []byte("aaaaaaaaaaaaaaaaaaaa")
	hunks := f.Find(src, 0)
	if len(hunks) != len(src) {
		t.Fatalf("level 0 produced %d hunks for %d bytes, want one per byte", len(hunks), len(src))
	}
	for _, h := range hunks {
		if h.Kind != Lit {
			t.Fatal("level 0 produced a Match hunk")
		}
	}
}

func repeatingInput() []byte {
	return bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 50)
}

func TestFastMatcherRoundTrips(t *testing.T) {
	for level := 1; level <= 3; level++ {
		f, err := New(level, 15)
		if err != nil {
			t.Fatal(err)
		}
		src := repeatingInput()
		hunks := f.Find(src, 0)
		got := reconstruct(hunks)
		if !bytes.Equal(got, src) {
			t.Fatalf("level %d: reconstruction mismatch", level)
		}
		hasMatch := false
		for _, h := range hunks {
			if h.Kind == Match {
				hasMatch = true
			}
		}
		if !hasMatch {
			t.Fatalf("level %d: no matches found in highly repetitive input", level)
		}
	}
}

func TestLazyMatcherRoundTrips(t *testing.T) {
	for level := 4; level <= 9; level++ {
		f, err := New(level, 15)
		if err != nil {
			t.Fatal(err)
		}
		src := repeatingInput()
		hunks := f.Find(src, 0)
		got := reconstruct(hunks)
		if !bytes.Equal(got, src) {
			t.Fatalf("level %d: reconstruction mismatch", level)
		}
	}
}

func TestMatchLengthAndDistanceBounds(t *testing.T) {
	f, err := New(9, 15)
	if err != nil {
		t.Fatal(err)
	}
	src := repeatingInput()
	hunks := f.Find(src, 0)
	for _, h := range hunks {
		if h.Kind != Match {
			continue
		}
		length := h.Length + minMatch
		distance := h.Distance + 1
		if length < minMatch || length > maxMatch {
			t.Fatalf("match length %d out of RFC 1951 bounds [3,258]", length)
		}
		if distance < 1 || distance > 1<<15 {
			t.Fatalf("match distance %d out of window bounds", distance)
		}
	}
}

func TestIncrementalFindMatchesOneShot(t *testing.T) {
	src := repeatingInput()

	f1, _ := New(6, 15)
	oneShot := f1.Find(src, 0)

	f2, _ := New(6, 15)
	var incremental []Hunk
	already := 0
	for _, cut := range []int{100, 400, len(src)} {
		incremental = append(incremental, f2.Find(src[:cut], already)...)
		already = cut
	}

	got := reconstruct(incremental)
	want := reconstruct(oneShot)
	if !bytes.Equal(got, want) {
		t.Fatal("incremental Find calls did not reconstruct the same bytes as one shot")
	}
	if !bytes.Equal(got, src) {
		t.Fatal("incremental reconstruction does not match the original source")
	}
}

func TestRandomDataStillRoundTrips(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := make([]byte, 5000)
	rng.Read(src)

	f, _ := New(6, 15)
	hunks := f.Find(src, 0)
	got := reconstruct(hunks)
	if !bytes.Equal(got, src) {
		t.Fatal("random, mostly-incompressible data did not round-trip through the match finder")
	}
}

func TestEmptyInput(t *testing.T) {
	f, _ := New(6, 15)
	hunks := f.Find(nil, 0)
	if len(hunks) != 0 {
		t.Fatalf("Find(nil) produced %d hunks, want 0", len(hunks))
	}
}
