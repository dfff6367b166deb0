package gzip

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clecat/decompress/flate"
)

func driveEncode(t *testing.T, e *Encoder, src []byte, inChunk, outChunk int) []byte {
	t.Helper()
	var compressed []byte
	out := make([]byte, outChunk)
	e.SetOutput(out)

	pos := 0
	finished := false
	for {
		st, err := e.Eval()
		switch st {
		case flate.StatusAwait:
			if err != nil {
				t.Fatalf("encoder error: %v", err)
			}
			end := pos + inChunk
			if end > len(src) {
				end = len(src)
			}
			chunk := src[pos:end]
			pos = end
			e.Write(chunk, flate.NoFlush)
			if pos >= len(src) && !finished {
				e.Finish()
				finished = true
			}
		case flate.StatusFlush:
			if err != nil {
				t.Fatalf("encoder error: %v", err)
			}
			compressed = append(compressed, out[:e.UsedOut()]...)
			out = make([]byte, outChunk)
			e.SetOutput(out)
		case flate.StatusEnd:
			compressed = append(compressed, out[:e.UsedOut()]...)
			return compressed
		case flate.StatusError:
			t.Fatalf("encoder error: %v", err)
		}
	}
}

func driveDecode(t *testing.T, d *Decoder, compressed []byte, inChunk, outChunk int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, outChunk)
	d.SetOutput(buf)

	pos := 0
	for {
		st, err := d.Eval()
		switch st {
		case flate.StatusAwait:
			if err != nil {
				t.Fatalf("decoder error: %v", err)
			}
			if pos >= len(compressed) {
				t.Fatal("decoder awaiting input with nothing left to feed")
			}
			end := pos + inChunk
			if end > len(compressed) {
				end = len(compressed)
			}
			d.Refill(compressed[pos:end])
			pos = end
		case flate.StatusFlush:
			if err != nil {
				t.Fatalf("decoder error: %v", err)
			}
			out = append(out, buf[:d.UsedOut()]...)
			buf = make([]byte, outChunk)
			d.SetOutput(buf)
		case flate.StatusEnd:
			out = append(out, buf[:d.UsedOut()]...)
			return out
		case flate.StatusError:
			t.Fatalf("decoder error: %v", err)
		}
	}
}

func sampleText() []byte {
	return bytes.Repeat([]byte("gzip adds a ten byte header and an eight byte trailer. "), 150)
}

func TestRoundTripNoOptionalFields(t *testing.T) {
	for level := 0; level <= 9; level++ {
		enc, err := NewEncoder(level, 15, Header{OS: OSUnix}, false)
		if err != nil {
			t.Fatal(err)
		}
		src := sampleText()
		compressed := driveEncode(t, enc, src, 2048, 2048)

		dec := NewDecoder()
		got := driveDecode(t, dec, compressed, 2048, 2048)
		if !bytes.Equal(got, src) {
			t.Fatalf("level %d: round trip mismatch", level)
		}
	}
}

func TestRoundTripWithNameCommentExtraHCRC(t *testing.T) {
	hdr := Header{
		OS:      OSUnix,
		MTIME:   1234567890,
		Name:    "sample.txt",
		Comment: "a test comment",
		Extra:   []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	enc, err := NewEncoder(6, 15, hdr, true)
	if err != nil {
		t.Fatal(err)
	}
	src := sampleText()
	compressed := driveEncode(t, enc, src, 4096, 4096)

	dec := NewDecoder()
	got := driveDecode(t, dec, compressed, 4096, 4096)
	if !bytes.Equal(got, src) {
		t.Fatal("round trip with optional fields mismatch")
	}

	gotHdr := dec.Header()
	if diff := cmp.Diff(hdr, gotHdr); diff != "" {
		t.Errorf("decoded header mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripSmallBuffersWithHeader(t *testing.T) {
	hdr := Header{OS: OSUnix, Name: "a.txt"}
	enc, err := NewEncoder(6, 15, hdr, true)
	if err != nil {
		t.Fatal(err)
	}
	src := sampleText()
	compressed := driveEncode(t, enc, src, 17, 13)

	dec := NewDecoder()
	got := driveDecode(t, dec, compressed, 17, 13)
	if !bytes.Equal(got, src) {
		t.Fatal("small-buffer round trip with header mismatch")
	}
}

func TestDecoderRejectsBadMagic(t *testing.T) {
	stream := []byte{0x00, 0x00, 8, 0, 0, 0, 0, 0, 0, 0xFF}
	dec := NewDecoder()
	dec.SetOutput(make([]byte, 64))
	dec.Refill(stream)
	st, err := dec.Eval()
	if st != flate.StatusError || err != ErrInvalidHeader {
		t.Fatalf("status/err = %v/%v, want StatusError/ErrInvalidHeader", st, err)
	}
}

func TestDecoderRejectsReservedFlagBits(t *testing.T) {
	stream := []byte{magic1, magic2, cmDeflate, 0xE0, 0, 0, 0, 0, 0, 0xFF}
	dec := NewDecoder()
	dec.SetOutput(make([]byte, 64))
	dec.Refill(stream)
	st, err := dec.Eval()
	if st != flate.StatusError || err != ErrInvalidHeader {
		t.Fatalf("status/err = %v/%v, want StatusError/ErrInvalidHeader", st, err)
	}
}

func TestDecoderRejectsBadHeaderChecksum(t *testing.T) {
	enc, err := NewEncoder(6, 15, Header{OS: OSUnix}, true)
	if err != nil {
		t.Fatal(err)
	}
	compressed := driveEncode(t, enc, []byte("payload"), 4096, 4096)
	// The FHCRC field is the two bytes right after the fixed 10-byte
	// header when no other optional fields are present.
	compressed[11] ^= 0xFF

	dec := NewDecoder()
	dec.SetOutput(make([]byte, 64))
	dec.Refill(compressed)
	var gotErr error
	for {
		st, err := dec.Eval()
		if st == flate.StatusError {
			gotErr = err
			break
		}
		if st == flate.StatusEnd {
			break
		}
	}
	if gotErr != ErrInvalidHeaderChecksum {
		t.Fatalf("err = %v, want ErrInvalidHeaderChecksum", gotErr)
	}
}

func TestDecoderRejectsBadTrailerCRC(t *testing.T) {
	enc, err := NewEncoder(6, 15, Header{OS: OSUnix}, false)
	if err != nil {
		t.Fatal(err)
	}
	compressed := driveEncode(t, enc, []byte("payload data"), 4096, 4096)
	compressed[len(compressed)-5] ^= 0xFF // inside the CRC-32 trailer field

	dec := NewDecoder()
	dec.SetOutput(make([]byte, 64))
	dec.Refill(compressed)
	var gotErr error
	for {
		st, err := dec.Eval()
		if st == flate.StatusError {
			gotErr = err
			break
		}
		if st == flate.StatusEnd {
			break
		}
	}
	if _, ok := gotErr.(*ErrInvalidChecksum); !ok {
		t.Fatalf("err = %v (%T), want *ErrInvalidChecksum", gotErr, gotErr)
	}
}

func TestRoundTripRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	src := make([]byte, 9000)
	rng.Read(src)

	enc, err := NewEncoder(6, 15, Header{OS: OSUnix}, false)
	if err != nil {
		t.Fatal(err)
	}
	compressed := driveEncode(t, enc, src, 4096, 4096)

	dec := NewDecoder()
	got := driveDecode(t, dec, compressed, 4096, 4096)
	if !bytes.Equal(got, src) {
		t.Fatal("random data round trip mismatch")
	}
}

func TestOfIntRejectsReservedRange(t *testing.T) {
	if _, ok := OfInt(200); ok {
		t.Fatal("OfInt(200) should be rejected, 200 is in the reserved 14..254 range")
	}
	if _, ok := OfInt(255); !ok {
		t.Fatal("OfInt(255) should be accepted as OSUnknown")
	}
	if os, ok := OfInt(3); !ok || os != OSUnix {
		t.Fatalf("OfInt(3) = %v, %v; want OSUnix, true", os, ok)
	}
}

func TestUsedOutAccumulatesAcrossMultipleOutputBuffers(t *testing.T) {
	// ISIZE validation needs a correct cumulative total even when the
	// caller rebinds the output buffer many times across a decode.
	enc, err := NewEncoder(6, 15, Header{OS: OSUnix}, false)
	if err != nil {
		t.Fatal(err)
	}
	src := sampleText()
	compressed := driveEncode(t, enc, src, 4096, 4096)

	dec := NewDecoder()
	got := driveDecode(t, dec, compressed, 4096, 7) // tiny output buffer, many rebinds
	if !bytes.Equal(got, src) {
		t.Fatal("multi-rebind decode did not reconstruct the source (ISIZE or CRC check likely failed)")
	}
}
