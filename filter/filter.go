// Package filter implements the batched classify-and-route pipeline: records
// stream in from a Source, each batch is classified in parallel with the umi
// matcher, and every record is then written, in its original input order, to
// exactly one of two sinks.
package filter

import (
	"context"
	"io"
	"runtime"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/umifilter/umi"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of records classified per fork-join round.
// Peak memory is roughly one batch of records plus the classification
// vector.
const DefaultBatchSize = 10000

// Record is one sequencing read, owned by the pipeline from the moment its
// Source returns it until it is routed to a sink.  Concrete types carry
// whatever extra payload their sink needs to serialize them.
type Record interface {
	// Name returns the read name, without any format-specific leading marker.
	Name() []byte
	// Seq returns the nucleotide sequence.
	Seq() []byte
}

// Source produces records lazily, in input order.  Next returns io.EOF at
// end of stream; any other error is an input failure.  A Source is not
// restartable.
type Source interface {
	Next() (Record, error)
}

// Sink consumes records in the order presented.  The kept and removed sinks
// passed to Run must never be the same object.
type Sink interface {
	Write(Record) error
}

type discard struct{}

func (discard) Write(Record) error { return nil }

// Discard is a Sink that drops all records, used when an output was not
// requested.
var Discard Sink = discard{}

// Opts configures a Run.
type Opts struct {
	// MaxMismatches is the tolerance passed to umi.Contains.
	MaxMismatches int
	// UMILength is the expected UMI token length, in bases.
	UMILength int
	// Parallelism bounds the number of concurrent classification workers.
	// 0 means runtime.NumCPU().  1 gives a deterministic single-threaded
	// executor.
	Parallelism int
	// BatchSize is the number of records per fork-join round.  0 means
	// DefaultBatchSize.  Results do not depend on the value chosen.
	BatchSize int
}

// DefaultOpts holds the default pipeline configuration.
var DefaultOpts = Opts{
	MaxMismatches: 0,
	UMILength:     12,
	Parallelism:   0,
	BatchSize:     DefaultBatchSize,
}

// Stats counts the records routed during one Run.  Total == Kept + Removed.
type Stats struct {
	Total   int64
	Kept    int64
	Removed int64
}

// Run streams records from src, classifies each ("UMI found in sequence" or
// not), and routes it to removed or kept respectively.  A record whose name
// yields no UMI token is kept; a token of the wrong length aborts the run
// with an error wrapping umi.ErrTokenLength.
//
// Batch N's writes complete before batch N+1 is classified; the next batch
// may be read ahead concurrently.  A nil sink is replaced with Discard.
func Run(ctx context.Context, src Source, kept, removed Sink, opts Opts) (Stats, error) {
	if kept == nil {
		kept = Discard
	}
	if removed == nil {
		removed = Discard
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	var stats Stats
	batchc := make(chan []Record, 1)
	g, ctx := errgroup.WithContext(ctx)

	// Reader: accumulate records into batches.  Sends block once the
	// classifier falls one batch behind, bounding memory.
	g.Go(func() error {
		defer close(batchc)
		batch := make([]Record, 0, batchSize)
		for {
			rec, err := src.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				select {
				case batchc <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
				batch = make([]Record, 0, batchSize)
			}
		}
		if len(batch) > 0 {
			select {
			case batchc <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// Classifier and writer: a parallel, side-effect-free compute phase per
	// batch, then strictly serial in-order writes.
	g.Go(func() error {
		for batch := range batchc {
			matched := make([]bool, len(batch))
			err := traverse.Limit(parallelism).Each(len(batch), func(i int) error {
				u, err := umi.FromName(batch[i].Name(), opts.UMILength)
				if err != nil {
					return err
				}
				matched[i] = u != nil && umi.Contains(u, batch[i].Seq(), opts.MaxMismatches)
				return nil
			})
			if err != nil {
				return err
			}
			for i, rec := range batch {
				if matched[i] {
					if err := removed.Write(rec); err != nil {
						return err
					}
					stats.Removed++
				} else {
					if err := kept.Write(rec); err != nil {
						return err
					}
					stats.Kept++
				}
				stats.Total++
			}
		}
		return nil
	})

	err := g.Wait()
	return stats, err
}
