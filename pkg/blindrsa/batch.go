package blindrsa

import (
	"context"
	"math/big"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SignBatch signs independent blinded values in parallel.
//
// Each value is a separate transaction; the signer's key is only read, so no locking
// is needed. At most workers signatures are computed at once (0 = number of CPUs).
// Results are returned in input order. The first failure or a cancelled context
// aborts the remaining work.
func SignBatch(ctx context.Context, signer BlindSigner, blinded []*big.Int, workers int) ([]*big.Int, error) {
	if signer == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil signer")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*big.Int, len(blinded))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range blinded {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			sig, err := signer.SignBlinded(blinded[i])
			if err != nil {
				return errors.Wrapf(err, "failed to sign blinded value %d", i)
			}
			results[i] = sig
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
