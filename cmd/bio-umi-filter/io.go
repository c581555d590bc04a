package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/umifilter/encoding/fastq"
	"github.com/grailbio/umifilter/filter"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const writeBufferSize = 1 << 20

type fileType int

const (
	fastqType fileType = iota
	fastqGzType
	bamType
	samType
)

// inputSuffixes maps recognized filename suffixes to file types.  Order
// matters: ".fastq.gz" must be tested before ".fastq".
var inputSuffixes = []struct {
	suffix string
	ft     fileType
}{
	{".fastq.gz", fastqGzType},
	{".fq.gz", fastqGzType},
	{".fastq", fastqType},
	{".fq", fastqType},
	{".bam", bamType},
	{".sam", samType},
}

func fileTypeFromPath(path string) (fileType, error) {
	for _, s := range inputSuffixes {
		if strings.HasSuffix(path, s.suffix) {
			return s.ft, nil
		}
	}
	return 0, errors.New("unrecognized input type (want .fastq[.gz], .fq[.gz], .bam, or .sam)")
}

func (ft fileType) suffix() string {
	switch ft {
	case fastqGzType:
		return "fastq.gz"
	case bamType:
		return "bam"
	case samType:
		return "sam"
	}
	return "fastq"
}

// outputPaths derives the kept and removed output paths from the output
// prefix.  A recognized input suffix on the prefix is stripped first, so
// "-output out.fastq.gz" and "-output out" are equivalent.
func (ft fileType) outputPaths(base string) (kept, removed string) {
	for _, s := range inputSuffixes {
		if strings.HasSuffix(base, s.suffix) {
			base = strings.TrimSuffix(base, s.suffix)
			base = strings.TrimSuffix(base, ".")
			break
		}
	}
	return base + "." + ft.suffix(), base + ".removed." + ft.suffix()
}

// recordOutput is a sink bound to an output file.
type recordOutput interface {
	filter.Sink
	Close(ctx context.Context) error
}

// runWithOutputs runs the filter and then closes the outputs, returning the
// first error encountered.
func runWithOutputs(ctx context.Context, src filter.Source, keptOut, removedOut recordOutput, opts filter.Opts) (filter.Stats, error) {
	var kept, removed filter.Sink
	if keptOut != nil {
		kept = keptOut
	}
	if removedOut != nil {
		removed = removedOut
	}
	stats, err := filter.Run(ctx, src, kept, removed, opts)
	if keptOut != nil {
		if e := keptOut.Close(ctx); e != nil && err == nil {
			err = e
		}
	}
	if removedOut != nil {
		if e := removedOut.Close(ctx); e != nil && err == nil {
			err = e
		}
	}
	return stats, err
}

type fastqRecord struct {
	read fastq.Read
}

func (r *fastqRecord) Name() []byte { return r.read.Name }
func (r *fastqRecord) Seq() []byte  { return r.read.Seq }

type fastqSource struct {
	sc *fastq.Scanner
}

func (s *fastqSource) Next() (filter.Record, error) {
	r := &fastqRecord{}
	if !s.sc.Scan(&r.read) {
		if err := s.sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return r, nil
}

type fastqOutput struct {
	f   file.File
	buf *bufio.Writer
	gz  *gzip.Writer
	w   *fastq.Writer
}

func createFastqOutput(ctx context.Context, path string, compressed bool) (*fastqOutput, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	o := &fastqOutput{f: f, buf: bufio.NewWriterSize(f.Writer(ctx), writeBufferSize)}
	var w io.Writer = o.buf
	if compressed {
		o.gz = gzip.NewWriter(w)
		w = o.gz
	}
	o.w = fastq.NewWriter(w)
	return o, nil
}

func (o *fastqOutput) Write(r filter.Record) error {
	return o.w.Write(&r.(*fastqRecord).read)
}

func (o *fastqOutput) Close(ctx context.Context) (err error) {
	if o.gz != nil {
		err = o.gz.Close()
	}
	if e := o.buf.Flush(); e != nil && err == nil {
		err = e
	}
	if e := o.f.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

func processFastq(ctx context.Context, inPath, keptPath, removedPath string, opts filter.Opts) (stats filter.Stats, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	info, err := in.Stat(ctx)
	if err != nil {
		return stats, err
	}
	compressed := strings.HasSuffix(inPath, ".gz")
	if info.Size() == 0 {
		// A zero-byte input yields zero stats and, when outputs are
		// requested, an empty kept file with no removed counterpart.
		if keptPath == "" {
			return stats, nil
		}
		o, err := createFastqOutput(ctx, keptPath, compressed)
		if err != nil {
			return stats, err
		}
		return stats, o.Close(ctx)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	var keptOut, removedOut recordOutput
	if keptPath != "" {
		o, err := createFastqOutput(ctx, keptPath, compressed)
		if err != nil {
			return stats, err
		}
		keptOut = o
		o, err = createFastqOutput(ctx, removedPath, compressed)
		if err != nil {
			_ = keptOut.Close(ctx)
			return stats, err
		}
		removedOut = o
	}
	return runWithOutputs(ctx, &fastqSource{sc: fastq.NewScanner(r)}, keptOut, removedOut, opts)
}

// samRecordReader is implemented by both sam.Reader and bam.Reader.
type samRecordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

type samRecordWriter interface {
	Write(*sam.Record) error
}

type samRecord struct {
	rec  *sam.Record
	name []byte
	seq  []byte
}

func newSAMRecord(rec *sam.Record) *samRecord {
	return &samRecord{rec: rec, name: []byte(rec.Name), seq: rec.Seq.Expand()}
}

func (r *samRecord) Name() []byte { return r.name }
func (r *samRecord) Seq() []byte  { return r.seq }

type samSource struct {
	r samRecordReader
}

func (s *samSource) Next() (filter.Record, error) {
	rec, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	return newSAMRecord(rec), nil
}

type samOutput struct {
	f   file.File
	buf *bufio.Writer
	bw  *bam.Writer
	w   samRecordWriter
}

func createBAMOutput(ctx context.Context, path string, header *sam.Header) (*samOutput, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f.Writer(ctx), writeBufferSize)
	bw, err := bam.NewWriter(buf, header, 1)
	if err != nil {
		_ = f.Close(ctx)
		return nil, err
	}
	return &samOutput{f: f, buf: buf, bw: bw, w: bw}, nil
}

func createSAMOutput(ctx context.Context, path string, header *sam.Header) (*samOutput, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f.Writer(ctx), writeBufferSize)
	sw, err := sam.NewWriter(buf, header, sam.FlagDecimal)
	if err != nil {
		_ = f.Close(ctx)
		return nil, err
	}
	return &samOutput{f: f, buf: buf, w: sw}, nil
}

func (o *samOutput) Write(r filter.Record) error {
	return o.w.Write(r.(*samRecord).rec)
}

func (o *samOutput) Close(ctx context.Context) (err error) {
	if o.bw != nil {
		err = o.bw.Close()
	}
	if e := o.buf.Flush(); e != nil && err == nil {
		err = e
	}
	if e := o.f.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

func processSAMLike(ctx context.Context, r samRecordReader, keptPath, removedPath string,
	create func(ctx context.Context, path string, header *sam.Header) (*samOutput, error),
	opts filter.Opts) (filter.Stats, error) {
	var keptOut, removedOut recordOutput
	if keptPath != "" {
		o, err := create(ctx, keptPath, r.Header())
		if err != nil {
			return filter.Stats{}, err
		}
		keptOut = o
		o, err = create(ctx, removedPath, r.Header())
		if err != nil {
			_ = keptOut.Close(ctx)
			return filter.Stats{}, err
		}
		removedOut = o
	}
	return runWithOutputs(ctx, &samSource{r: r}, keptOut, removedOut, opts)
}

func processBAM(ctx context.Context, inPath, keptPath, removedPath string, opts filter.Opts) (stats filter.Stats, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return stats, errors.Wrapf(err, "%s: failed to open BAM", inPath)
	}
	stats, err = processSAMLike(ctx, br, keptPath, removedPath, createBAMOutput, opts)
	if e := br.Close(); e != nil && err == nil {
		err = e
	}
	return stats, err
}

func processSAM(ctx context.Context, inPath, keptPath, removedPath string, opts filter.Opts) (stats filter.Stats, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	sr, err := sam.NewReader(in.Reader(ctx))
	if err != nil {
		return stats, errors.Wrapf(err, "%s: failed to open SAM", inPath)
	}
	return processSAMLike(ctx, sr, keptPath, removedPath, createSAMOutput, opts)
}
