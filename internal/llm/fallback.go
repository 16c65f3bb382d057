package llm

import (
	"context"
	"errors"
	"fmt"
)

// FallbackAdapter attempts a primary adapter first and falls back on error.
type FallbackAdapter struct {
	primary  Adapter
	fallback Adapter
}

func NewFallbackAdapter(primary Adapter, fallback Adapter) *FallbackAdapter {
	return &FallbackAdapter{
		primary:  primary,
		fallback: fallback,
	}
}

// Primary returns the preferred adapter used before fallback.
func (a *FallbackAdapter) Primary() Adapter {
	if a == nil {
		return nil
	}
	return a.primary
}

// Secondary returns the fallback adapter.
func (a *FallbackAdapter) Secondary() Adapter {
	if a == nil {
		return nil
	}
	return a.fallback
}

func (a *FallbackAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	if a == nil || a.primary == nil {
		if a != nil && a.fallback != nil {
			return a.fallback.Generate(ctx, req)
		}
		return Response{}, fmt.Errorf("fallback adapter misconfigured")
	}
	resp, err := a.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return Response{}, err
	}
	if a.fallback == nil {
		return Response{}, err
	}
	fallbackResp, fallbackErr := a.fallback.Generate(ctx, req)
	if fallbackErr != nil {
		return Response{}, fmt.Errorf("primary adapter error: %v; fallback adapter error: %w", err, fallbackErr)
	}
	return fallbackResp, nil
}
