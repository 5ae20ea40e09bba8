/*
Package activity records an audit trail of fleet operations.

The Recorder is a fire-and-forget sink: callers enqueue events without
blocking, a background goroutine persists them to the activity bucket,
and failures are logged locally and never propagate. Close drains the
buffer before returning so shutdown does not lose recent events.
*/
package activity
