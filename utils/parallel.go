package utils

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// RowBandFunc processes the half open row range [from, to).
type RowBandFunc func(ctx context.Context, from, to int) error

// ParallelForEachRowBand splits `rows` into at most ParallelFactor contiguous bands and runs `f`
// on each band concurrently. Bands never overlap, so workers may write disjoint parts of a shared
// raster without locking. The first error (or recovered panic) cancels the context handed to the
// remaining bands and is returned.
func ParallelForEachRowBand(ctx context.Context, rows int, f RowBandFunc) error {
	if rows <= 0 {
		return nil
	}
	bands := ParallelFactor
	if bands > rows {
		bands = rows
	}
	bandSize := rows / bands
	extra := rows % bands

	group, groupCtx := errgroup.WithContext(ctx)
	from := 0
	for band := 0; band < bands; band++ {
		to := from + bandSize
		if band < extra {
			to++
		}
		bandFrom, bandTo := from, to
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = errors.Errorf("got panic processing rows [%d, %d): %v", bandFrom, bandTo, thePanic)
				}
			}()
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return f(groupCtx, bandFrom, bandTo)
		})
		from = to
	}
	return group.Wait()
}
