package source

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits the pace the source is pulled at. The limiter counts bytes, so its
// limit is the bandwidth in bytes per second. Pieces larger than the limiter's burst
// are waited for in several steps.
func Throttle(ctx context.Context, src Retriever, limiter *rate.Limiter) Retriever {
	return Func(func() ([]byte, error) {
		data, err := src.Retrieve()

		burst := max(limiter.Burst(), 1)

		for n := len(data); n > 0; {
			step := min(n, burst)
			if waitErr := limiter.WaitN(ctx, step); waitErr != nil {
				return nil, waitErr
			}

			n -= step
		}

		return data, err
	})
}
