// Package replicacount implements the replica-count calculator: given a
// container's replicas, its pending operations, and the maintenance
// policy, compute how many additional healthy replicas are needed. Two
// views are built per invocation, one that counts UNHEALTHY replicas
// toward availability and one that does not. Both read the same inputs
// without modifying them; each query recomputes its count from those
// inputs and the node status lookup.
package replicacount

import (
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
)

// Calculator is constructed once per view and exposes the read-only
// counting operations the handler needs to decide whether a container is
// under-replicated.
type Calculator struct {
	container                model.Container
	replicas                  []model.ContainerReplica
	pendingOps                []model.PendingOp
	minHealthyForMaintenance  int
	considerUnhealthy         bool
	nodeStatus                func(model.DatanodeID) (model.NodeStatus, error)
}

// New constructs a Calculator. nodeStatus is the cached lookup collaborator
// (nodestatus.Cache.GetNodeStatus); a lookup miss is treated as the node
// being unhealthy.
func New(
	container model.Container,
	replicas []model.ContainerReplica,
	pendingOps []model.PendingOp,
	minHealthyForMaintenance int,
	considerUnhealthy bool,
	nodeStatus func(model.DatanodeID) (model.NodeStatus, error),
) *Calculator {
	return &Calculator{
		container:                container,
		replicas:                 replicas,
		pendingOps:               pendingOps,
		minHealthyForMaintenance: minHealthyForMaintenance,
		considerUnhealthy:        considerUnhealthy,
		nodeStatus:               nodeStatus,
	}
}

// GetReplicas returns the immutable snapshot of input replicas.
func (c *Calculator) GetReplicas() []model.ContainerReplica {
	return c.replicas
}

func (c *Calculator) statusOf(dn model.DatanodeID) model.NodeStatus {
	st, err := c.nodeStatus(dn)
	if err != nil {
		// NodeNotFound (or any lookup error): treat as unhealthy, skip.
		return model.NodeStatus{DatanodeID: dn, Health: model.HealthDead}
	}
	return st
}

// GetHealthyReplicaCount counts CLOSED/QUASI_CLOSED replicas on IN_SERVICE
// or DECOMMISSIONING+HEALTHY nodes.
func (c *Calculator) GetHealthyReplicaCount() int {
	count := 0
	for _, r := range c.replicas {
		if !r.IsHealthyState() {
			continue
		}
		if c.statusOf(r.DatanodeID).IsAvailableForCount() {
			count++
		}
	}
	return count
}

func (c *Calculator) maintenanceReplicaCount() int {
	count := 0
	for _, r := range c.replicas {
		if c.statusOf(r.DatanodeID).OperationalState.IsMaintenance() {
			count++
		}
	}
	return count
}

// effectiveAvailable counts CLOSED/QUASI_CLOSED replicas on IN_SERVICE or
// DECOMMISSIONING-but-HEALTHY nodes, plus UNHEALTHY replicas on healthy
// nodes when considerUnhealthy is true.
func (c *Calculator) effectiveAvailable() int {
	count := c.GetHealthyReplicaCount()
	if !c.considerUnhealthy {
		return count
	}
	for _, r := range c.replicas {
		if r.State != model.ReplicaUnhealthy {
			continue
		}
		if c.statusOf(r.DatanodeID).IsAvailableForCount() {
			count++
		}
	}
	return count
}

// targetHealthy is the replication factor adjusted for maintenance: if k
// replicas are draining, the requirement for the remainder rises so that
// at least minHealthyForMaintenance healthy replicas exist on
// non-maintenance nodes.
func (c *Calculator) targetHealthy() int {
	factor := c.container.ReplicationFactor
	maintenance := c.maintenanceReplicaCount()
	if maintenance == 0 {
		return factor
	}
	remainder := factor - maintenance
	if remainder < c.minHealthyForMaintenance {
		return c.minHealthyForMaintenance
	}
	return remainder
}

// AdditionalReplicaNeeded returns max(0, targetHealthy - effectiveAvailable).
func (c *Calculator) AdditionalReplicaNeeded() int {
	needed := c.targetHealthy() - c.effectiveAvailable()
	if needed < 0 {
		return 0
	}
	return needed
}

// pendingAddDatanodes returns the set of distinct datanodes targeted by a
// pending ADD that do not already host a replica of this container — a
// pending ADD landing on a node that already has a replica must not be
// double-counted, so dedupe by physical datanode before summing.
func (c *Calculator) pendingAddDatanodes() map[model.DatanodeID]struct{} {
	existing := make(map[model.DatanodeID]struct{}, len(c.replicas))
	for _, r := range c.replicas {
		existing[r.DatanodeID] = struct{}{}
	}
	adds := make(map[model.DatanodeID]struct{})
	for _, p := range c.pendingOps {
		if !p.IsAdd() {
			continue
		}
		if _, already := existing[p.DatanodeID]; already {
			continue
		}
		adds[p.DatanodeID] = struct{}{}
	}
	return adds
}

// IsSufficientlyReplicated reports whether effectiveAvailable (plus
// pending ADDs, when includePending is true) meets targetHealthy.
func (c *Calculator) IsSufficientlyReplicated(includePending bool) bool {
	available := c.effectiveAvailable()
	if includePending {
		available += len(c.pendingAddDatanodes())
	}
	return available >= c.targetHealthy()
}
