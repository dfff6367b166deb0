package flate

// Status is the continuation tag eval() returns: spec.md's {Await, Flush,
// End, Error}.
type Status int

const (
	// StatusAwait means the registered input slice is exhausted; the
	// caller must Refill and call Eval again.
	StatusAwait Status = iota
	// StatusFlush means the registered output slice is full; the caller
	// must SetOutput and call Eval again.
	StatusFlush
	// StatusEnd means the session finished cleanly.
	StatusEnd
	// StatusError means the session hit a decode/encode error and is now
	// terminal; Eval must not be called again.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAwait:
		return "await"
	case StatusFlush:
		return "flush"
	case StatusEnd:
		return "end"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// byteWriter is a plain byte-level output cursor, the decoder's
// equivalent of bitio.Writer for data that isn't bit-packed (decoded
// literals and stored-block payloads are whole bytes).
type byteWriter struct {
	buf []byte
	pos int
}

func (w *byteWriter) SetOutput(buf []byte) { w.buf = buf; w.pos = 0 }
func (w *byteWriter) Avail() int           { return len(w.buf) - w.pos }
func (w *byteWriter) Pos() int             { return w.pos }

func (w *byteWriter) WriteByte(b byte) bool {
	if w.pos >= len(w.buf) {
		return false
	}
	w.buf[w.pos] = b
	w.pos++
	return true
}

func (w *byteWriter) Write(p []byte) int {
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n
}
