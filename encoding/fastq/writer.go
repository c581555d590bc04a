package fastq

import "io"

var (
	at      = []byte{'@'}
	newline = []byte{'\n'}
	plus    = []byte("\n+\n")
)

// Writer is a FASTQ file writer.  The third line of each record is written
// as a bare "+" regardless of what the source carried there.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a new FASTQ writer that writes reads to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format.  An error is returned if the
// write failed; once a write fails, all subsequent writes fail with the same
// error.
func (w *Writer) Write(r *Read) error {
	w.write(at)
	w.write(r.Name)
	w.write(newline)
	w.write(r.Seq)
	w.write(plus)
	w.write(r.Qual)
	w.write(newline)
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}
