package fleet

import (
	"fmt"
)

// ValidationError reports invalid operator input
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Msg
}

// NotFoundError reports an unknown node id
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// PreconditionError reports an operation attempted before its
// prerequisites hold (e.g. provisioning before cluster bootstrap)
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Msg
}

// CredentialError reports absent or undecryptable node credentials
type CredentialError struct {
	NodeID string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("node %s has no SSH credentials", e.NodeID)
	}
	return fmt.Sprintf("failed to decrypt SSH credentials for node %s: %v", e.NodeID, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// BootstrapError reports a failed cluster bootstrap step
type BootstrapError struct {
	Step string
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("cluster bootstrap failed at %s: %v", e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// MatchError reports a node that joined but could not be matched
// against the control plane within the retry budget
type MatchError struct {
	NodeName string
	Attempts int
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("node %s not found in the cluster after %d attempts; verify the node joined and is reachable from the manager",
		e.NodeName, e.Attempts)
}

// RemovalError reports a failed node removal step
type RemovalError struct {
	NodeID string
	Step   string
	Err    error
}

func (e *RemovalError) Error() string {
	return fmt.Sprintf("failed to remove node %s at %s: %v", e.NodeID, e.Step, e.Err)
}

func (e *RemovalError) Unwrap() error {
	return e.Err
}
