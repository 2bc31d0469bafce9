package fetch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DownloadAll runs Fetch for every request in reqs under a concurrency
// cap of limit, grounded on the teacher corpus's errgroup.SetLimit
// worker-pool pattern. It returns the first error only after every
// request has been attempted; individual failures are also reported
// per-request via onResult so callers can build a failed-files list
// instead of aborting the whole batch.
func (f *Fetcher) DownloadAll(ctx context.Context, reqs []Request, limit int, onResult func(Request, error)) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	var (
		mu       sync.Mutex
		firstErr error
	)
	for _, req := range reqs {
		req := req
		eg.Go(func() error {
			err := f.Fetch(egCtx, req)
			if onResult != nil {
				onResult(req, err)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	return firstErr
}
