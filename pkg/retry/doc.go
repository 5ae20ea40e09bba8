/*
Package retry provides bounded retry policies for operations against
remote systems.

Retries run up to a maximum attempt count with either a fixed delay
(metadata-sync polling against the control plane) or exponential
backoff (SSH connection establishment). Waits run on an injectable
clockwork.Clock so tests can simulate "never matches" and "matches on
attempt 3" without real sleeps, and every wait observes context
cancellation.

	err := retry.Do(ctx, func() error {
		return matchNode()
	},
		retry.WithMaxAttempts(6),
		retry.WithDelay(5*time.Second),
	)

Errors wrapped with retry.Fatal are returned immediately without
consuming further attempts.
*/
package retry
