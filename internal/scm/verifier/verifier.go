// Package verifier decides, given the "with unhealthy" and "without
// unhealthy" replica-count views, whether action is still warranted and
// which view to act under.
package verifier

import "github.com/makinyemi/ozone-scm-reconciler/internal/scm/replicacount"

// Decision names which view, if any, the caller should act under.
type Decision int

const (
	// DecisionNone means no action is warranted: the container is
	// already healthy, pending adds will fix it, or it is unrecoverable.
	DecisionNone Decision = iota
	// DecisionWithoutUnhealthy means solve by replicating healthy
	// copies; UNHEALTHY replicas are ignored for counting but still
	// excluded from target nodes.
	DecisionWithoutUnhealthy
	// DecisionWithUnhealthy means no healthy copies exist; propagate an
	// UNHEALTHY replica to preserve at least one copy.
	DecisionWithUnhealthy
)

// Verify runs the under-replication decision table, first match wins.
// with must have been constructed with considerUnhealthy=true and without
// with considerUnhealthy=false, over the same replicas/pendingOps.
func Verify(with, without *replicacount.Calculator) Decision {
	if without.IsSufficientlyReplicated(false) {
		return DecisionNone
	}
	if without.IsSufficientlyReplicated(true) {
		return DecisionNone
	}
	if len(with.GetReplicas()) == 0 {
		return DecisionNone
	}
	if with.IsSufficientlyReplicated(true) && with.GetHealthyReplicaCount() == 0 {
		return DecisionNone
	}
	if without.GetHealthyReplicaCount() > 0 {
		return DecisionWithoutUnhealthy
	}
	return DecisionWithUnhealthy
}

// Resolve returns the Calculator view to act under for the given decision,
// or nil if the decision is DecisionNone.
func Resolve(decision Decision, with, without *replicacount.Calculator) *replicacount.Calculator {
	switch decision {
	case DecisionWithoutUnhealthy:
		return without
	case DecisionWithUnhealthy:
		return with
	default:
		return nil
	}
}
