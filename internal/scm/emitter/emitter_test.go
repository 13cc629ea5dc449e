package emitter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/scmerrors"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/transport"
)

type fakeManager struct {
	mu             sync.Mutex
	pushSent       []model.DatanodeID
	pullSent       []model.DatanodeID
	deletesSent    []model.DatanodeID
	failTargets    map[model.DatanodeID]error
}

func (f *fakeManager) GetNodeStatus(model.DatanodeID) (model.NodeStatus, error) {
	return model.NodeStatus{}, nil
}

func (f *fakeManager) SendThrottledReplicationCommand(_ model.ContainerID, _ []model.DatanodeID, target model.DatanodeID, _ transport.Priority) error {
	if err, ok := f.failTargets[target]; ok {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushSent = append(f.pushSent, target)
	return nil
}

func (f *fakeManager) SendDatanodeCommand(_ model.ContainerID, _ []model.DatanodeID, target model.DatanodeID) error {
	if err, ok := f.failTargets[target]; ok {
		return err
	}
	f.pullSent = append(f.pullSent, target)
	return nil
}

func (f *fakeManager) SendDeleteCommand(_ model.ContainerID, _ int, datanode model.DatanodeID, _ bool) error {
	f.deletesSent = append(f.deletesSent, datanode)
	return nil
}

func TestEmit_Pull_EmitsOnePerTargetInOrder(t *testing.T) {
	m := &fakeManager{}
	count, err := Emit(context.Background(), m, 1, []model.DatanodeID{"src1"}, []model.DatanodeID{"t1", "t2"}, ModePull)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, []model.DatanodeID{"t1", "t2"}, m.pullSent)
}

func TestEmit_Pull_StopsAndReturnsAcceptedCountOnError(t *testing.T) {
	m := &fakeManager{failTargets: map[model.DatanodeID]error{"t2": scmerrors.CommandTargetOverloaded{Datanode: "t2"}}}
	count, err := Emit(context.Background(), m, 1, []model.DatanodeID{"src1"}, []model.DatanodeID{"t1", "t2", "t3"}, ModePull)
	require.Error(t, err)
	require.Equal(t, 1, count)
}

func TestEmit_Push_AllTargetsAccepted(t *testing.T) {
	m := &fakeManager{}
	count, err := Emit(context.Background(), m, 1, []model.DatanodeID{"src1"}, []model.DatanodeID{"t1", "t2", "t3"}, ModePush)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.ElementsMatch(t, []model.DatanodeID{"t1", "t2", "t3"}, m.pushSent)
}

func TestEmit_Push_PartialFailureReportsAcceptedCount(t *testing.T) {
	m := &fakeManager{failTargets: map[model.DatanodeID]error{"t2": scmerrors.CommandTargetOverloaded{Datanode: "t2"}}}
	count, err := Emit(context.Background(), m, 1, []model.DatanodeID{"src1"}, []model.DatanodeID{"t1", "t2", "t3"}, ModePush)
	require.Error(t, err)
	require.Equal(t, 2, count)
}

func TestChooseDeletionVictim_PrefersUnhealthyOverQuasiClosed(t *testing.T) {
	replicas := []model.ContainerReplica{
		{DatanodeID: "n1", State: model.ReplicaQuasiClosed, SequenceID: model.SomeSequenceID(1)},
		{DatanodeID: "n2", State: model.ReplicaUnhealthy},
	}
	victim, ok := ChooseDeletionVictim(replicas, 0, 1)
	require.True(t, ok)
	require.Equal(t, model.DatanodeID("n2"), victim.DatanodeID)
}

func TestChooseDeletionVictim_TiesBrokenByLowestSequenceID(t *testing.T) {
	replicas := []model.ContainerReplica{
		{DatanodeID: "n1", State: model.ReplicaUnhealthy, SequenceID: model.SomeSequenceID(5)},
		{DatanodeID: "n2", State: model.ReplicaUnhealthy, SequenceID: model.SomeSequenceID(2)},
	}
	victim, ok := ChooseDeletionVictim(replicas, 0, 1)
	require.True(t, ok)
	require.Equal(t, model.DatanodeID("n2"), victim.DatanodeID)
}

func TestChooseDeletionVictim_RespectsPendingDeleteBudget(t *testing.T) {
	replicas := []model.ContainerReplica{
		{DatanodeID: "n1", State: model.ReplicaUnhealthy},
	}
	_, ok := ChooseDeletionVictim(replicas, 1, 1)
	require.False(t, ok)
}

func TestChooseDeletionVictim_NoEligibleReplica(t *testing.T) {
	replicas := []model.ContainerReplica{
		{DatanodeID: "n1", State: model.ReplicaClosed},
	}
	_, ok := ChooseDeletionVictim(replicas, 0, 1)
	require.False(t, ok)
}
