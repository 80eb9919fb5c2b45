// Package llm is the boundary to the external generative model. Callers depend
// only on Provider and on the error taxonomy defined here, never on a
// transport or SDK.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrRateLimited marks provider errors caused by quota or rate limiting.
// These are the only errors worth retrying
var ErrRateLimited = errors.New("llm: rate limited")

// Provider sends one prompt to a generative model and returns its text reply
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a plain function to Provider
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Classify wraps err with ErrRateLimited when it represents a rate-limit or
// quota response, so errors.Is(err, ErrRateLimited) works regardless of the
// SDK that produced it
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrRateLimited) {
		return err
	}
	if isRateLimit(err) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}

func isRateLimit(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}

	// Some runners flatten provider errors into plain strings
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429 too many requests", "rate limit", "resource exhausted", "resource_exhausted", "quota exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
