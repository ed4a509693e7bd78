package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"seraph/internal/logging"
)

// cachingClient memoizes completions by request fingerprint. Deterministic
// scheduled prompts (briefings re-run after a crash, repeated goal checks) hit
// the cache instead of the provider.
type cachingClient struct {
	inner  Client
	cache  *lru.Cache[string, *Response]
	logger logging.Logger
}

// NewCachingClient wraps inner with an LRU of the given size. Size <= 0
// disables caching and returns inner unchanged.
func NewCachingClient(inner Client, size int, logger logging.Logger) (Client, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, *Response](size)
	if err != nil {
		return nil, fmt.Errorf("create llm cache: %w", err)
	}
	return &cachingClient{
		inner:  inner,
		cache:  cache,
		logger: logging.OrNop(logger),
	}, nil
}

func (c *cachingClient) Model() string { return c.inner.Model() }

func (c *cachingClient) Complete(ctx context.Context, req Request) (*Response, error) {
	key := fingerprint(c.inner.Model(), req)
	if resp, ok := c.cache.Get(key); ok {
		c.logger.Debug("llm cache hit")
		return resp, nil
	}
	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, resp)
	return resp, nil
}

func fingerprint(model string, req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.2f|%d", model, req.Temperature, req.MaxTokens)
	for _, m := range req.Messages {
		fmt.Fprintf(h, "|%s:%s", m.Role, m.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}
