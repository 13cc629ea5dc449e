// Package emitter issues replication commands to the chosen targets, and
// when target selection produced nothing at all, attempts to free a slot
// by deleting one UNHEALTHY replica (or, when there is none, one
// QUASI_CLOSED replica) instead.
package emitter

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/logging"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/transport"
)

// Mode selects push vs. pull emission, controlled by the config key
// replication.push.
type Mode int

const (
	ModePull Mode = iota
	ModePush
)

// MaxConcurrentSends bounds how many targets are notified concurrently in
// push mode, via transport.Enqueuer, so one slow coordinator doesn't stall
// the rest of the batch.
const MaxConcurrentSends = 4

// Emit issues one command per target (push or pull, per mode), using
// sources as the candidate source list. It returns the number of commands
// the transport actually accepted; in push mode the sends fan out
// concurrently (bounded) while still reporting a deterministic count. Any
// error returned is returned alongside however many commands were already
// accepted: a send failure partway through does not undo the commands
// that already reached the transport.
func Emit(
	ctx context.Context,
	manager transport.ReplicationManager,
	container model.ContainerID,
	sources []model.DatanodeID,
	targets []model.DatanodeID,
	mode Mode,
) (int, error) {
	if mode == ModePull {
		accepted := 0
		for _, target := range targets {
			if err := manager.SendDatanodeCommand(container, sources, target); err != nil {
				return accepted, err
			}
			accepted++
			logging.InfofCtx(ctx, "emitted pull command for container %d to target %s", container, target)
		}
		return accepted, nil
	}

	enqueuer := transport.NewEnqueuer(MaxConcurrentSends)
	var g errgroup.Group
	accepted := make([]bool, len(targets))
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			return enqueuer.Run(ctx, func() error {
				if err := manager.SendThrottledReplicationCommand(container, sources, target, transport.PriorityNormal); err != nil {
					return err
				}
				accepted[i] = true
				logging.InfofCtx(ctx, "emitted push command for container %d to target %s", container, target)
				return nil
			})
		})
	}
	err := g.Wait()

	count := 0
	for _, ok := range accepted {
		if ok {
			count++
		}
	}
	return count, err
}

// ChooseDeletionVictim applies the deterministic tie-break rule for the
// fallback deletion path: prefer UNHEALTHY over QUASI_CLOSED, breaking ties
// by lowest sequence id (least trustworthy first). Returns false if no
// eligible replica exists.
//
// Exposed as a standalone pure function so the tie-break rule is testable
// without driving the whole fallback path.
func ChooseDeletionVictim(replicas []model.ContainerReplica, pendingDeleteCount, maxPendingDeletes int) (model.ContainerReplica, bool) {
	if pendingDeleteCount >= maxPendingDeletes {
		return model.ContainerReplica{}, false
	}

	candidates := make([]model.ContainerReplica, 0, len(replicas))
	for _, r := range replicas {
		if r.State == model.ReplicaUnhealthy || r.State == model.ReplicaQuasiClosed {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return model.ContainerReplica{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.State != b.State {
			// UNHEALTHY sorts before QUASI_CLOSED.
			return a.State == model.ReplicaUnhealthy
		}
		aSeq, aHas := a.SequenceID.Value()
		bSeq, bHas := b.SequenceID.Value()
		if aHas != bHas {
			return !aHas // no sequence id sorts first: it's the least trustworthy.
		}
		return aSeq < bSeq
	})
	return candidates[0], true
}

// EmitFallbackDelete attempts the slot-freeing fallback: choose a
// deletion victim among replicas and, if one exists, issue a delete
// command for it. It returns whether a deletion was scheduled.
func EmitFallbackDelete(
	ctx context.Context,
	manager transport.ReplicationManager,
	container model.ContainerID,
	replicas []model.ContainerReplica,
	pendingDeleteCount, maxPendingDeletes int,
) (bool, error) {
	victim, ok := ChooseDeletionVictim(replicas, pendingDeleteCount, maxPendingDeletes)
	if !ok {
		logging.InfofCtx(ctx, "no fallback deletion candidate for container %d", container)
		return false, nil
	}
	if err := manager.SendDeleteCommand(container, victim.ReplicaIndex, victim.DatanodeID, false); err != nil {
		return false, err
	}
	logging.WarningfCtx(ctx, "scheduled fallback deletion of replica on %s for container %d after target selection failed", victim.DatanodeID, container)
	return true, nil
}
