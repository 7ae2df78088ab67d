// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package genai

import (
	"context"
	"fmt"
	"time"
)

// PollFunc is called once per polling attempt. Returning done=true stops
// the loop successfully; returning an error stops it with that error.
type PollFunc func(ctx context.Context) (done bool, err error)

// Poll invokes fn up to maxAttempts times, sleeping interval between
// attempts. It stops on completion, error, context cancellation, or
// attempt exhaustion. Exhaustion yields an error containing "timed out"
// so callers and the error classifier can recognize it.
func Poll(ctx context.Context, interval time.Duration, maxAttempts int, fn PollFunc) error {
	if maxAttempts < 1 {
		return fmt.Errorf("poll: maxAttempts must be at least 1")
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("poll cancelled: %w", err)
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		// Don't sleep after the final attempt.
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("poll cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation timed out after %d attempts", maxAttempts)
}
