package service

import "gitlab.com/distributed_lab/logan/v3/errors"

var (
	// ErrInvalidOrderParams is returned synchronously at creation; no order
	// record exists after it.
	ErrInvalidOrderParams = errors.New("invalid order params")
	// ErrStaleTransition rejects a transition whose expected from-state no
	// longer holds. The losing side must re-read and either retry or stand
	// down; the state was not overwritten.
	ErrStaleTransition = errors.New("stale transition")
	// ErrRevealNotAuthorized rejects a secret reveal before both escrows are
	// confirmed locked.
	ErrRevealNotAuthorized = errors.New("reveal not authorized")
	// ErrInvalidProof marks a proof the destination verifier rejected; the
	// same proof is never retried.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrEscrowDeploymentFailed is a local deployment failure; the order keeps
	// its prior state.
	ErrEscrowDeploymentFailed = errors.New("escrow deployment failed")
	// ErrCancellationWindowClosed rejects cancellation once the reveal began.
	ErrCancellationWindowClosed = errors.New("cancellation window closed")

	ErrOrderNotFound = errors.New("order not found")
)

// isStale reports whether err is a rejected concurrent transition.
func isStale(err error) bool {
	return errors.Cause(err) == ErrStaleTransition
}
