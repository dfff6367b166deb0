// Package zlib implements RFC 1950 framing around the raw flate codec: a
// 2-byte CMF/FLG header, the DEFLATE stream itself, and a 4-byte
// big-endian Adler-32 trailer over the uncompressed data.
//
// It follows the same push-style contract as flate: Write/SetOutput
// register buffers, Eval runs until one of them is exhausted. This
// mirrors the teacher's zran/gzran wrapper, which layers gzip framing
// around zran's raw inflate the same way this package layers zlib
// framing around flate.
package zlib

import (
	"errors"
	"fmt"
)

// ErrInvalidHeader reports a CMF/FLG pair that fails the mod-31 check,
// names a compression method other than 8 (deflate), or sets FDICT (a
// preset dictionary, which this package's encoder never emits and its
// decoder therefore never accepts).
var ErrInvalidHeader = errors.New("zlib: invalid header")

// ErrInvalidChecksum reports a trailer Adler-32 that disagrees with the
// one computed while decoding.
type ErrInvalidChecksum struct {
	Have, Want uint32
}

func (e *ErrInvalidChecksum) Error() string {
	return fmt.Sprintf("zlib: checksum mismatch: have %08x want %08x", e.Have, e.Want)
}

const cmDeflate = 8

func header(wbits uint, level int) [2]byte {
	cmf := byte((wbits-8)<<4) | cmDeflate
	var flevel byte
	switch {
	case level < 2:
		flevel = 0
	case level < 6:
		flevel = 1
	case level == 6:
		flevel = 2
	default:
		flevel = 3
	}
	flg := flevel << 6
	if rem := (int(cmf)*256 + int(flg)) % 31; rem != 0 {
		flg += byte(31 - rem)
	}
	return [2]byte{cmf, flg}
}

func parseHeader(b [2]byte) (wbits uint, err error) {
	cmf, flg := b[0], b[1]
	if (int(cmf)*256+int(flg))%31 != 0 {
		return 0, ErrInvalidHeader
	}
	if cmf&0x0F != cmDeflate {
		return 0, ErrInvalidHeader
	}
	cinfo := cmf >> 4
	if cinfo > 7 {
		return 0, ErrInvalidHeader
	}
	if flg&0x20 != 0 {
		return 0, ErrInvalidHeader
	}
	return uint(cinfo) + 8, nil
}

func be32(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
