package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/pcp/pkg/cache"
)

// NewCache builds the resolution cache named by cacheURL:
//
//	""                      no cache
//	memory://[?size=bytes]  process-local fastcache, optional &ttl=duration
//	redis://host:port/db    shared redis, optional ?ttl=duration
func NewCache(ctx context.Context, cacheURL string) (cache.Cache, error) {
	switch {
	case cacheURL == "":
		return cache.Noop{}, nil
	case strings.HasPrefix(cacheURL, "memory://"):
		u, err := url.Parse(cacheURL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache url: %w", err)
		}

		size := 0

		if raw := u.Query().Get("size"); raw != "" {
			size, err = strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid memory cache size %q: %w", raw, err)
			}
		}

		var ttl time.Duration

		if raw := u.Query().Get("ttl"); raw != "" {
			ttl, err = time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid cache ttl %q: %w", raw, err)
			}
		}

		return cache.NewMemory(size, ttl), nil
	case strings.HasPrefix(cacheURL, "redis://"), strings.HasPrefix(cacheURL, "rediss://"):
		redisURL, ttl, err := splitTTL(cacheURL)
		if err != nil {
			return nil, err
		}

		return cache.NewRedis(ctx, redisURL, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache url %q", cacheURL)
	}
}

// splitTTL removes the ttl query parameter, which go-redis would reject.
func splitTTL(raw string) (string, time.Duration, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("invalid cache url: %w", err)
	}

	query := u.Query()

	var ttl time.Duration

	if value := query.Get("ttl"); value != "" {
		ttl, err = time.ParseDuration(value)
		if err != nil {
			return "", 0, fmt.Errorf("invalid cache ttl %q: %w", value, err)
		}

		query.Del("ttl")
		u.RawQuery = query.Encode()
	}

	return u.String(), ttl, nil
}
