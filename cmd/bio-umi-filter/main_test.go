package main

import (
	"bytes"
	"testing"

	"github.com/grailbio/umifilter/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromPath(t *testing.T) {
	for _, test := range []struct {
		path string
		ft   fileType
	}{
		{"reads.fastq", fastqType},
		{"reads.fq", fastqType},
		{"reads.fastq.gz", fastqGzType},
		{"reads.fq.gz", fastqGzType},
		{"s3://bucket/dir/reads.fastq.gz", fastqGzType},
		{"aligned.bam", bamType},
		{"aligned.sam", samType},
	} {
		ft, err := fileTypeFromPath(test.path)
		require.NoError(t, err, test.path)
		assert.Equal(t, test.ft, ft, test.path)
	}
	_, err := fileTypeFromPath("reads.txt")
	require.Error(t, err)
	_, err = fileTypeFromPath("reads.fastq.bz2")
	require.Error(t, err)
}

func TestOutputPaths(t *testing.T) {
	for _, test := range []struct {
		ft            fileType
		base          string
		kept, removed string
	}{
		{fastqType, "out", "out.fastq", "out.removed.fastq"},
		{fastqType, "out.fastq", "out.fastq", "out.removed.fastq"},
		{fastqType, "out.fq", "out.fastq", "out.removed.fastq"},
		{fastqGzType, "out", "out.fastq.gz", "out.removed.fastq.gz"},
		{fastqGzType, "out.fq.gz", "out.fastq.gz", "out.removed.fastq.gz"},
		{bamType, "out.bam", "out.bam", "out.removed.bam"},
		{samType, "dir/out", "dir/out.sam", "dir/out.removed.sam"},
	} {
		kept, removed := test.ft.outputPaths(test.base)
		assert.Equal(t, test.kept, kept, "%s %v", test.base, test.ft)
		assert.Equal(t, test.removed, removed, "%s %v", test.base, test.ft)
	}
}

func TestPrintSummary(t *testing.T) {
	b := new(bytes.Buffer)
	printSummary(b, "in.fastq", filter.Stats{Total: 4, Kept: 3, Removed: 1})
	assert.Equal(t, "in.fastq\t4\t3\t75.00\t1\t25.00\n", b.String())

	b.Reset()
	printSummary(b, "empty.fastq", filter.Stats{})
	assert.Equal(t, "empty.fastq\t0\t0\t0.00\t0\t0.00\n", b.String())
}
