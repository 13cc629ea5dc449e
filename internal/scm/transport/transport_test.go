package transport

import (
	"context"
	"testing"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/scmerrors"
)

type fakeInner struct {
	failures int
	calls    int
}

func (f *fakeInner) GetNodeStatus(model.DatanodeID) (model.NodeStatus, error) {
	return model.NodeStatus{}, nil
}

func (f *fakeInner) SendThrottledReplicationCommand(model.ContainerID, []model.DatanodeID, model.DatanodeID, Priority) error {
	f.calls++
	if f.calls <= f.failures {
		return scmerrors.CommandTargetOverloaded{Datanode: "n1"}
	}
	return nil
}

func (f *fakeInner) SendDatanodeCommand(model.ContainerID, []model.DatanodeID, model.DatanodeID) error {
	f.calls++
	return nil
}

func (f *fakeInner) SendDeleteCommand(model.ContainerID, int, model.DatanodeID, bool) error {
	f.calls++
	return nil
}

func TestRetryingManager_RetriesOnlyCommandTargetOverloaded(t *testing.T) {
	inner := &fakeInner{failures: 2}
	m := NewRetryingManager(inner)

	err := m.SendThrottledReplicationCommand(1, nil, "n1", PriorityNormal)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner.calls = %d, want 3 (2 failures + 1 success)", inner.calls)
	}
}

func TestRetryingManager_DoesNotRetryOtherErrors(t *testing.T) {
	inner := &permanentFailInner{}
	m := NewRetryingManager(inner)

	err := m.SendDatanodeCommand(1, nil, "n1")
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if _, ok := err.(scmerrors.NotLeader); !ok {
		t.Errorf("err = %v, want scmerrors.NotLeader", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner.calls = %d, want 1 (no retry on non-overloaded error)", inner.calls)
	}
}

type permanentFailInner struct {
	calls int
}

func (p *permanentFailInner) GetNodeStatus(model.DatanodeID) (model.NodeStatus, error) {
	return model.NodeStatus{}, nil
}

func (p *permanentFailInner) SendThrottledReplicationCommand(model.ContainerID, []model.DatanodeID, model.DatanodeID, Priority) error {
	p.calls++
	return scmerrors.NotLeader{}
}

func (p *permanentFailInner) SendDatanodeCommand(model.ContainerID, []model.DatanodeID, model.DatanodeID) error {
	p.calls++
	return scmerrors.NotLeader{}
}

func (p *permanentFailInner) SendDeleteCommand(model.ContainerID, int, model.DatanodeID, bool) error {
	p.calls++
	return scmerrors.NotLeader{}
}

func TestEnqueuer_BoundsConcurrency(t *testing.T) {
	e := NewEnqueuer(1)
	running := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		e.Run(context.Background(), func() error {
			close(running)
			<-release
			return nil
		})
		close(done)
	}()

	<-running
	select {
	case <-done:
		t.Fatal("first task must still be holding the only slot")
	default:
	}
	close(release)
	<-done
}
