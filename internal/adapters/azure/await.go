package azure

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
)

// poller is the part of *runtime.Poller used here.
type poller[T any] interface {
	PollUntilDone(ctx context.Context, options *runtime.PollUntilDoneOptions) (T, error)
}

type awaitOptions struct {
	timeout   time.Duration
	frequency time.Duration
}

// await polls a long-running operation until it reaches a terminal state or
// the configured timeout elapses. Cancellation of ctx itself is returned
// as-is so callers can tell a shutdown from a slow operation.
func await[T any](ctx context.Context, p poller[T], o awaitOptions, resource, name string) (T, error) {
	waitCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := p.PollUntilDone(waitCtx, &runtime.PollUntilDoneOptions{Frequency: o.frequency})
	if err == nil {
		return res, nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, &domain.ProvisioningTimeoutError{Resource: resource, Name: name, After: o.timeout}
	}
	return res, err
}
