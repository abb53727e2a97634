package hashcash

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// SolveParallel splits the search across workers. Worker i tries nonces
// i, i+workers, i+2*workers, ... and the smallest valid nonce any worker finds
// is kept in a shared bound. A worker keeps going until its candidates pass
// that bound, so the result is always the globally smallest valid nonce, the
// same answer Solve gives.
//
// workers <= 0 uses one worker per CPU.
func (pow *ProofOfWork) SolveParallel(ctx context.Context, identity string, workers int) (*Solution, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 {
		return pow.Solve(ctx, identity)
	}

	var best atomic.Uint64
	best.Store(math.MaxUint64)
	bound := func() uint64 { return best.Load() }

	digests := make([]Digest, workers)
	nonces := make([]uint64, workers)
	found := make([]bool, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			nonce, digest, err := search(gctx, identity, int(pow.difficultyLevel), uint64(w), uint64(workers), bound)
			if errors.Is(err, errBoundExceeded) {
				return nil
			}
			if err != nil {
				return err
			}
			nonces[w], digests[w], found[w] = nonce, digest, true
			lowerBound(&best, nonce)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	winner := -1
	for w := range found {
		if found[w] && (winner < 0 || nonces[w] < nonces[winner]) {
			winner = w
		}
	}
	if winner < 0 {
		return nil, ErrNonceExhausted
	}
	return newSolution(identity, nonces[winner], digests[winner]), nil
}

func lowerBound(best *atomic.Uint64, nonce uint64) {
	for {
		cur := best.Load()
		if nonce >= cur || best.CompareAndSwap(cur, nonce) {
			return
		}
	}
}
