package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/jwtguard/internal/cache"
)

const healthKey = "health:check"

// CacheCheck exercises the cache backend with a short-lived write and read.
func CacheCheck(store cache.Cache) CheckFunc {
	return func(ctx context.Context) error {
		if err := store.Set(ctx, healthKey, []byte("ok"), time.Minute); err != nil {
			return fmt.Errorf("cache write failed: %w", err)
		}
		if _, err := store.Exists(ctx, healthKey); err != nil {
			return fmt.Errorf("cache read failed: %w", err)
		}
		return nil
	}
}

// HTTPCheck requests url with a GET and expects a 2xx answer. A nil client
// uses http.DefaultClient.
func HTTPCheck(url string, client *http.Client) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return nil
	}
}
