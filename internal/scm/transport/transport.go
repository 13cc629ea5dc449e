// Package transport defines the ReplicationManager collaborator the
// handler sends commands through, plus a thin retrying wrapper grounded
// on weed/topology/topology.go's use of github.com/cenkalti/backoff/v4
// for the Raft-leader-wait case. Here the transient condition is
// scmerrors.CommandTargetOverloaded rather than "no leader yet", but the
// retry shape is the same: a short bounded exponential backoff, never
// retried past a few seconds because the caller re-queues the whole
// reconciliation anyway.
package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/scmerrors"
)

// Priority mirrors the priority levels the underlying command queue
// accepts for throttled push commands.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
)

// ReplicationManager is the external collaborator that actually talks to
// datanodes. Implementations may throw scmerrors.CommandTargetOverloaded
// from either send method; the handler propagates that unchanged once
// retries are exhausted.
type ReplicationManager interface {
	GetNodeStatus(datanode model.DatanodeID) (model.NodeStatus, error)
	SendThrottledReplicationCommand(container model.ContainerID, sources []model.DatanodeID, target model.DatanodeID, priority Priority) error
	SendDatanodeCommand(container model.ContainerID, sources []model.DatanodeID, target model.DatanodeID) error
	SendDeleteCommand(container model.ContainerID, replicaIndex int, datanode model.DatanodeID, forceDelete bool) error
}

// RetryingManager wraps a ReplicationManager with a short bounded
// exponential backoff against CommandTargetOverloaded, so a single
// transient queue-depth spike doesn't immediately fail the whole
// reconciliation pass and force a re-queue.
type RetryingManager struct {
	inner ReplicationManager
}

// NewRetryingManager wraps inner.
func NewRetryingManager(inner ReplicationManager) *RetryingManager {
	return &RetryingManager{inner: inner}
}

func (m *RetryingManager) GetNodeStatus(datanode model.DatanodeID) (model.NodeStatus, error) {
	return m.inner.GetNodeStatus(datanode)
}

func retryPolicy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

func (m *RetryingManager) SendThrottledReplicationCommand(container model.ContainerID, sources []model.DatanodeID, target model.DatanodeID, priority Priority) error {
	return retryOverloaded(func() error {
		return m.inner.SendThrottledReplicationCommand(container, sources, target, priority)
	})
}

func (m *RetryingManager) SendDatanodeCommand(container model.ContainerID, sources []model.DatanodeID, target model.DatanodeID) error {
	return retryOverloaded(func() error {
		return m.inner.SendDatanodeCommand(container, sources, target)
	})
}

func (m *RetryingManager) SendDeleteCommand(container model.ContainerID, replicaIndex int, datanode model.DatanodeID, forceDelete bool) error {
	return retryOverloaded(func() error {
		return m.inner.SendDeleteCommand(container, replicaIndex, datanode, forceDelete)
	})
}

func retryOverloaded(op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if _, overloaded := err.(scmerrors.CommandTargetOverloaded); overloaded {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, retryPolicy())
}

// Enqueuer exists for symmetry with the corpus's worker-pool style
// (weed/worker/tasks): a bounded fan-out so push-mode emission can notify
// a coordinator per target without blocking the caller past the initial
// enqueue. Used by emitter.Emit in push mode.
type Enqueuer struct {
	sem chan struct{}
}

// NewEnqueuer bounds concurrent in-flight sends to maxConcurrent.
func NewEnqueuer(maxConcurrent int) *Enqueuer {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Enqueuer{sem: make(chan struct{}, maxConcurrent)}
}

// Run blocks until a slot is free, then runs fn, releasing the slot on
// return. ctx cancellation is honored while waiting for a slot.
func (e *Enqueuer) Run(ctx context.Context, fn func() error) error {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()
	return fn()
}
