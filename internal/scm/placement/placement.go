// Package placement builds the used/excluded node sets a target
// selection needs, then delegates to a pluggable Policy. The policy
// itself (rack/topology reasoning, free-space planning) is an external
// collaborator; this package owns only the used/excluded/favored
// bookkeeping and one reference implementation, a rack-aware policy that
// spreads targets across failure domains before doubling up.
package placement

import (
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
)

// NodeConstraints is the used/excluded/favored bookkeeping a target
// selection computes once per invocation: a small value type rather than
// positional parameters, since a placement call needs more than two or
// three related slices.
type NodeConstraints struct {
	// Used nodes currently in use, must not receive another replica but
	// still count toward rack/topology reasoning.
	Used []model.DatanodeID
	// Excluded nodes must not be picked and must not influence topology
	// reasoning at all.
	Excluded []model.DatanodeID
	// Favored nodes the policy should prefer, if it supports favoring.
	Favored []model.DatanodeID
}

// View is the subset of a ReplicaCount view the Target Selector needs.
type View interface {
	AdditionalReplicaNeeded() int
}

// Policy is the pluggable placement policy collaborator: Choose returns
// up to n datanodes, or a scmerrors.FailedToFindSuitableNode when no
// suitable node can be produced (distinct from any other policy error,
// which propagates unchanged).
type Policy interface {
	Choose(constraints NodeConstraints, n int, sizeBytes int64) ([]model.DatanodeID, error)
}

// BuildConstraints computes the used/excluded sets: used comes from
// replicas on IN_SERVICE or maintenance nodes (will stay) plus pending-ADD
// targets; excluded comes from replicas on DECOMMISSIONING nodes,
// UNHEALTHY replicas, and pending-DELETE targets.
//
// This preserves a deliberate asymmetry: a DECOMMISSIONING node can still
// be a source (if HEALTHY) but is excluded, not merely omitted, from
// placement's view of topology, because it should not receive new
// replicas and should not be counted as already holding rack capacity
// that is about to free up.
func BuildConstraints(
	replicas []model.ContainerReplica,
	pendingOps []model.PendingOp,
	nodeStatus func(model.DatanodeID) (model.NodeStatus, error),
) NodeConstraints {
	var constraints NodeConstraints
	seenUsed := make(map[model.DatanodeID]struct{})
	seenExcluded := make(map[model.DatanodeID]struct{})

	addUsed := func(id model.DatanodeID) {
		if _, ok := seenUsed[id]; !ok {
			seenUsed[id] = struct{}{}
			constraints.Used = append(constraints.Used, id)
		}
	}
	addExcluded := func(id model.DatanodeID) {
		if _, ok := seenExcluded[id]; !ok {
			seenExcluded[id] = struct{}{}
			constraints.Excluded = append(constraints.Excluded, id)
		}
	}

	for _, r := range replicas {
		if r.State == model.ReplicaUnhealthy {
			addExcluded(r.DatanodeID)
			continue
		}
		status, err := nodeStatus(r.DatanodeID)
		if err != nil {
			addExcluded(r.DatanodeID)
			continue
		}
		switch {
		case status.OperationalState == model.OpStateDecommissioning:
			addExcluded(r.DatanodeID)
		case status.OperationalState == model.OpStateInService,
			status.OperationalState.IsMaintenance():
			addUsed(r.DatanodeID)
		default:
			addExcluded(r.DatanodeID)
		}
	}

	for _, p := range pendingOps {
		switch p.Type {
		case model.PendingAdd:
			addUsed(p.DatanodeID)
		case model.PendingDelete:
			addExcluded(p.DatanodeID)
		}
	}

	return constraints
}

// SelectTargets delegates to policy for up to view.AdditionalReplicaNeeded()
// targets, built over the constraints computed above.
func SelectTargets(
	view View,
	constraints NodeConstraints,
	sizeBytes int64,
	policy Policy,
) ([]model.DatanodeID, error) {
	required := view.AdditionalReplicaNeeded()
	if required == 0 {
		return nil, nil
	}
	return policy.Choose(constraints, required, sizeBytes)
}
