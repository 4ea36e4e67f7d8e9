package service

import (
	"context"
)

// RateLimiter decides whether another event for key is allowed now
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// noLimit allows everything
type noLimit struct{}

func (noLimit) Allow(context.Context, string) (bool, error) { return true, nil }
