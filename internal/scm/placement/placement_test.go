package placement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
)

func status(op model.OperationalState, health model.HealthState) func(model.DatanodeID) (model.NodeStatus, error) {
	return func(id model.DatanodeID) (model.NodeStatus, error) {
		return model.NodeStatus{DatanodeID: id, OperationalState: op, Health: health}, nil
	}
}

func TestBuildConstraints_InServiceReplicaIsUsed(t *testing.T) {
	replicas := []model.ContainerReplica{{DatanodeID: "n1", State: model.ReplicaClosed}}
	c := BuildConstraints(replicas, nil, status(model.OpStateInService, model.HealthHealthy))
	require.Equal(t, []model.DatanodeID{"n1"}, c.Used)
	require.Empty(t, c.Excluded)
}

func TestBuildConstraints_DecommissioningReplicaIsExcludedNotUsed(t *testing.T) {
	// Preserves the spec's deliberate asymmetry: a still-healthy
	// DECOMMISSIONING node can serve as a source but must not be
	// treated as "used" placement capacity, nor influence topology
	// reasoning as a normal occupied slot would.
	replicas := []model.ContainerReplica{{DatanodeID: "n1", State: model.ReplicaClosed}}
	c := BuildConstraints(replicas, nil, status(model.OpStateDecommissioning, model.HealthHealthy))
	require.Empty(t, c.Used)
	require.Equal(t, []model.DatanodeID{"n1"}, c.Excluded)
}

func TestBuildConstraints_MaintenanceReplicaIsUsed(t *testing.T) {
	replicas := []model.ContainerReplica{{DatanodeID: "n1", State: model.ReplicaClosed}}
	c := BuildConstraints(replicas, nil, status(model.OpStateInMaintenance, model.HealthHealthy))
	require.Equal(t, []model.DatanodeID{"n1"}, c.Used)
	require.Empty(t, c.Excluded)
}

func TestBuildConstraints_UnhealthyReplicaIsExcluded(t *testing.T) {
	replicas := []model.ContainerReplica{{DatanodeID: "n1", State: model.ReplicaUnhealthy}}
	c := BuildConstraints(replicas, nil, status(model.OpStateInService, model.HealthHealthy))
	require.Empty(t, c.Used)
	require.Equal(t, []model.DatanodeID{"n1"}, c.Excluded)
}

func TestBuildConstraints_PendingAddIsUsed_PendingDeleteIsExcluded(t *testing.T) {
	pending := []model.PendingOp{
		{Type: model.PendingAdd, DatanodeID: "n2"},
		{Type: model.PendingDelete, DatanodeID: "n3"},
	}
	c := BuildConstraints(nil, pending, status(model.OpStateInService, model.HealthHealthy))
	require.Equal(t, []model.DatanodeID{"n2"}, c.Used)
	require.Equal(t, []model.DatanodeID{"n3"}, c.Excluded)
}

type fakeRackTopology struct {
	rack      map[model.DatanodeID]string
	freeSpace map[model.DatanodeID]int64
	nodes     []model.DatanodeID
}

func (f *fakeRackTopology) RackOf(n model.DatanodeID) string         { return f.rack[n] }
func (f *fakeRackTopology) FreeSpaceBytes(n model.DatanodeID) int64  { return f.freeSpace[n] }
func (f *fakeRackTopology) AllNodes() []model.DatanodeID             { return f.nodes }

func TestRackAwarePolicy_SpreadsAcrossRacksBeforeDoublingUp(t *testing.T) {
	topo := &fakeRackTopology{
		rack: map[model.DatanodeID]string{
			"n1": "r1", "n2": "r1", "n3": "r2", "n4": "r3",
		},
		freeSpace: map[model.DatanodeID]int64{
			"n1": 100, "n2": 100, "n3": 100, "n4": 100,
		},
		nodes: []model.DatanodeID{"n1", "n2", "n3", "n4"},
	}
	policy := NewRackAwarePolicy(topo, 1)
	chosen, err := policy.Choose(NodeConstraints{}, 2, 10)
	require.NoError(t, err)
	require.Len(t, chosen, 2)
	racks := map[string]bool{}
	for _, id := range chosen {
		racks[topo.RackOf(id)] = true
	}
	require.Len(t, racks, 2, "expected targets spread across distinct racks")
}

func TestRackAwarePolicy_ExcludesUsedAndExcludedNodes(t *testing.T) {
	topo := &fakeRackTopology{
		rack:      map[model.DatanodeID]string{"n1": "r1", "n2": "r2"},
		freeSpace: map[model.DatanodeID]int64{"n1": 100, "n2": 100},
		nodes:     []model.DatanodeID{"n1", "n2"},
	}
	policy := NewRackAwarePolicy(topo, 1)
	chosen, err := policy.Choose(NodeConstraints{Used: []model.DatanodeID{"n1"}}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, []model.DatanodeID{"n2"}, chosen)
}

func TestRackAwarePolicy_NoCandidateReturnsFailedToFindSuitableNode(t *testing.T) {
	topo := &fakeRackTopology{
		rack:      map[model.DatanodeID]string{"n1": "r1"},
		freeSpace: map[model.DatanodeID]int64{"n1": 5},
		nodes:     []model.DatanodeID{"n1"},
	}
	policy := NewRackAwarePolicy(topo, 1)
	_, err := policy.Choose(NodeConstraints{}, 1, 100)
	require.Error(t, err)
}
