package strava

import (
	"context"
	"sync"
)

// FetchAll retrieves pages 1..maxPages with a bounded worker pool and merges
// the results in completion order. Callers must treat the result as a set
// keyed by activity ID; no page ordering is guaranteed. A failed page
// contributes zero records instead of aborting the fetch, so one flaky page
// cannot blank an entire account's history. Cancelling the context stops
// workers from picking up further pages.
func (c *Client) FetchAll(ctx context.Context, accessToken string, maxPages int) []ActivityRecord {
	if maxPages < 1 {
		return nil
	}

	pages := make(chan int)
	var (
		mu  sync.Mutex
		all []ActivityRecord
		wg  sync.WaitGroup
	)

	workers := c.workers
	if workers > maxPages {
		workers = maxPages
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pages {
				result, err := c.FetchPage(ctx, accessToken, page, MaxPerPage)
				if err != nil {
					c.logger.Printf("page %d failed: %v", page, err)
					continue
				}
				if result.Empty {
					continue
				}
				mu.Lock()
				all = append(all, result.Activities...)
				mu.Unlock()
			}
		}()
	}

submit:
	for page := 1; page <= maxPages; page++ {
		select {
		case <-ctx.Done():
			break submit
		case pages <- page:
		}
	}
	close(pages)
	wg.Wait()

	return all
}

// FetchRecent retrieves only the newest activities, one small page. This is
// the fast path used on every scheduled run once an account is bootstrapped.
func (c *Client) FetchRecent(ctx context.Context, accessToken string) ([]ActivityRecord, error) {
	page, err := c.FetchPage(ctx, accessToken, 1, RecentPerPage)
	if err != nil {
		return nil, err
	}
	return page.Activities, nil
}
