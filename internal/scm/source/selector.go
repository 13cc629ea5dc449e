// Package source produces the ordered list of datanodes usable as copy
// sources, honoring the sequence-id freshness rule so a copy never
// resurrects a superseded epoch of the container.
package source

import (
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
)

// View is the subset of a ReplicaCount view the selector needs: the
// replicas under consideration and whether any healthy replica exists
// (for the UNHEALTHY last-resort rule).
type View interface {
	GetReplicas() []model.ContainerReplica
	GetHealthyReplicaCount() int
}

// Select returns the datanode ids eligible as copy sources, in input
// order: accept by replica state, exclude pending deletes and unhealthy
// nodes, then keep only the freshest sequence id among what's left.
func Select(
	container model.Container,
	view View,
	pendingOps []model.PendingOp,
	nodeStatus func(model.DatanodeID) (model.NodeStatus, error),
) []model.DatanodeID {
	pendingDelete := make(map[model.DatanodeID]struct{})
	for _, p := range pendingOps {
		if p.IsDelete() {
			pendingDelete[p.DatanodeID] = struct{}{}
		}
	}

	replicas := view.GetReplicas()
	hasClosed := false
	for _, r := range replicas {
		if r.State == model.ReplicaClosed {
			hasClosed = true
			break
		}
	}
	noHealthyReplicas := view.GetHealthyReplicaCount() == 0

	var accepted []model.ContainerReplica
	for _, r := range replicas {
		if !acceptState(r.State, hasClosed, container.Lifecycle, noHealthyReplicas) {
			continue
		}
		if _, deleting := pendingDelete[r.DatanodeID]; deleting {
			continue
		}
		status, err := nodeStatus(r.DatanodeID)
		if err != nil || !status.IsHealthy() {
			continue
		}
		accepted = append(accepted, r)
	}

	maxSeq, anyHasSeq := maxSequenceID(accepted)

	var result []model.DatanodeID
	for _, r := range accepted {
		if anyHasSeq {
			seq, present := r.SequenceID.Value()
			if !present || seq != maxSeq {
				continue
			}
		}
		result = append(result, r.DatanodeID)
	}
	return result
}

func acceptState(state model.ReplicaState, hasClosed bool, lifecycle model.LifecycleState, noHealthyReplicas bool) bool {
	switch state {
	case model.ReplicaClosed:
		return true
	case model.ReplicaQuasiClosed:
		return !hasClosed || lifecycle == model.LifecycleQuasiClosed
	case model.ReplicaUnhealthy:
		return noHealthyReplicas
	default:
		return false
	}
}

func maxSequenceID(replicas []model.ContainerReplica) (uint64, bool) {
	var max uint64
	found := false
	for _, r := range replicas {
		seq, present := r.SequenceID.Value()
		if !present {
			continue
		}
		if !found || seq > max {
			max = seq
			found = true
		}
	}
	return max, found
}
