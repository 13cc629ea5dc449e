// Package scmerrors defines the typed failure kinds the reconciliation
// handler raises, per the error handling design in the spec: callers
// branch on kind via errors.As rather than string-matching, the same way
// the rest of this codebase prefers a distinct type over a bare
// errors.New when a caller needs to react differently to it.
package scmerrors

import "fmt"

// NotLeader is raised when SCM lost leadership mid-operation. The caller
// abandons the iteration; nothing about this invocation is retried.
type NotLeader struct{}

func (NotLeader) Error() string { return "scm: not leader" }

// CommandTargetOverloaded is raised when the transport queue rejects a
// command because the target datanode already has too many in-flight
// commands. Commands already accepted before this error stay accepted.
type CommandTargetOverloaded struct {
	Datanode string
}

func (e CommandTargetOverloaded) Error() string {
	return fmt.Sprintf("scm: command target overloaded: %s", e.Datanode)
}

// FailedToFindSuitableNode is raised by the placement policy when it
// cannot produce any target, distinct from a catastrophic policy error so
// the orchestrator knows to run the slot-freeing fallback before
// re-raising.
type FailedToFindSuitableNode struct {
	Reason string
}

func (e FailedToFindSuitableNode) Error() string {
	return fmt.Sprintf("scm: failed to find suitable node: %s", e.Reason)
}

// InsufficientDatanodes is raised after commands have already been
// emitted for every target obtained, when fewer targets were obtained
// than the view's additionalReplicaNeeded. It carries both numbers so the
// scheduler can log and re-queue without recomputing them.
type InsufficientDatanodes struct {
	Needed int
	Got    int
}

func (e InsufficientDatanodes) Error() string {
	return fmt.Sprintf("scm: insufficient datanodes: needed %d, got %d", e.Needed, e.Got)
}

// NodeNotFound is raised by the node status cache when a datanode is
// unknown. The handler never propagates this: a lookup miss is treated as
// "unhealthy, skip" at the call site.
type NodeNotFound struct {
	Datanode string
}

func (e NodeNotFound) Error() string {
	return fmt.Sprintf("scm: node not found: %s", e.Datanode)
}
