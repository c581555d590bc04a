// Package fastq provides a FASTQ read scanner and writer operating on owned
// byte slices, suitable for handing records to concurrent consumers.
package fastq

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
)

// A Read is a FASTQ read.  Name holds the header line without its leading
// '@'; Qual may be empty when the source carries no qualities.  All fields
// are owned by the Read.
type Read struct {
	Name, Seq, Qual []byte
}

var errEOF = errors.New("eof")

// Scanner reads FASTQ data record by record.  It validates that header lines
// begin with "@" and that line 3 begins with "+", but performs no further
// validation (seq/qual length agreement, character ranges, etc.).  Scanners
// are not threadsafe.
//
// An input that is empty at the first record boundary is not an error: Scan
// returns false and Err returns nil.
type Scanner struct {
	b   *bufio.Scanner
	err error
}

// NewScanner constructs a Scanner reading raw FASTQ data from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{b: bufio.NewScanner(r)}
}

// Scan reads the next record into read, copying all fields into read's own
// storage (existing capacity is reused).  It returns false at end of input
// or on error; once false, it never returns true again.  Check Err upon
// completion.
func (s *Scanner) Scan(read *Read) bool {
	if s.err != nil {
		return false
	}
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = errEOF
		}
		return false
	}
	header := s.b.Bytes()
	if len(header) == 0 || header[0] != '@' {
		s.err = ErrInvalid
		return false
	}
	read.Name = append(read.Name[:0], header[1:]...)
	if !s.scan() {
		return false
	}
	read.Seq = append(read.Seq[:0], s.b.Bytes()...)
	if !s.scan() {
		return false
	}
	plus := s.b.Bytes()
	if len(plus) == 0 || plus[0] != '+' {
		s.err = ErrInvalid
		return false
	}
	if !s.scan() {
		return false
	}
	read.Qual = append(read.Qual[:0], s.b.Bytes()...)
	return true
}

func (s *Scanner) scan() bool {
	ok := s.b.Scan()
	if !ok {
		if s.err = s.b.Err(); s.err == nil {
			s.err = ErrShort
		}
	}
	return ok
}

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}
