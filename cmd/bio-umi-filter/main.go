// Copyright 2019 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-umi-filter checks whether the UMI embedded in each read name also occurs
in the read sequence, within a mismatch tolerance.  Reads whose UMI is found
are routed to a ".removed" output, the rest to a clean output, and a
tab-separated summary is printed on success:

    <source>\t<total>\t<kept>\t<kept%>\t<removed>\t<removed%>

Inputs may be FASTQ, gzipped FASTQ, BAM, or SAM; the input type and the
output suffixes are derived from the input filename.
*/

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/umifilter/filter"
)

var (
	input       = flag.String("input", "", "Input path (FASTQ, FASTQ.gz, BAM, or SAM); required")
	mismatches  = flag.Int("mismatches", 0, "Maximum number of mismatches allowed when finding the UMI in the read (0..3)")
	umiLength   = flag.Int("umi-length", filter.DefaultOpts.UMILength, "UMI length in base pairs")
	output      = flag.String("output", "", "Output path prefix; output suffixes are derived from the input type. If empty, no output files are written")
	parallelism = flag.Int("parallelism", 0, "Maximum number of concurrent classification workers; 0 = runtime.NumCPU()")
	verbose     = flag.Bool("verbose", false, "Log elapsed time")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -input reads.fastq [OPTIONS]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func printSummary(w io.Writer, source string, stats filter.Stats) {
	var keptPct, removedPct float64
	if stats.Total > 0 {
		keptPct = float64(stats.Kept) / float64(stats.Total) * 100.0
		removedPct = float64(stats.Removed) / float64(stats.Total) * 100.0
	}
	fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\t%.2f\n",
		source, stats.Total, stats.Kept, keptPct, stats.Removed, removedPct)
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *input == "" {
		log.Fatalf("-input is required")
	}
	if *mismatches < 0 || *mismatches > 3 {
		log.Fatalf("-mismatches must be in 0..3, got %d", *mismatches)
	}
	if *umiLength <= 0 {
		log.Fatalf("-umi-length must be positive, got %d", *umiLength)
	}
	ctx := vcontext.Background()

	ft, err := fileTypeFromPath(*input)
	if err != nil {
		log.Fatalf("%s: %v", *input, err)
	}
	var keptPath, removedPath string
	if *output != "" {
		keptPath, removedPath = ft.outputPaths(*output)
	}
	opts := filter.Opts{
		MaxMismatches: *mismatches,
		UMILength:     *umiLength,
		Parallelism:   *parallelism,
		BatchSize:     filter.DefaultBatchSize,
	}

	start := time.Now()
	var stats filter.Stats
	switch ft {
	case fastqType, fastqGzType:
		stats, err = processFastq(ctx, *input, keptPath, removedPath, opts)
	case bamType:
		stats, err = processBAM(ctx, *input, keptPath, removedPath, opts)
	case samType:
		stats, err = processSAM(ctx, *input, keptPath, removedPath, opts)
	}
	if err != nil {
		log.Fatalf("%s: %v", *input, err)
	}

	printSummary(os.Stdout, filepath.Base(*input), stats)
	if *verbose {
		log.Printf("elapsed: %.3fs", time.Since(start).Seconds())
	}
}
