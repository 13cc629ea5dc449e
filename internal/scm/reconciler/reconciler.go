// Package reconciler implements the top-level orchestration operation,
// ProcessAndSendCommands. It is a stateless, synchronous function composed
// of the other scm/ packages; it holds no locks and retains no references
// to its inputs past return, so one Handler can be shared safely across
// concurrent reconciliation passes.
package reconciler

import (
	"context"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/config"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/emitter"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/logging"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/metrics"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/placement"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/replicacount"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/scmerrors"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/source"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/transport"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/verifier"
)

// MaxPendingDeletesForFallback caps how many in-flight deletes the
// fallback slot-freeing step will add on top of, so a container that
// already has a delete in flight doesn't accumulate a second one.
const MaxPendingDeletesForFallback = 1

// Handler composes the collaborators a reconciliation pass needs. It
// carries no per-invocation state; Manager, Policy, Metrics, and Cfg are
// all shared, thread-safe collaborators.
type Handler struct {
	Manager transport.ReplicationManager
	Policy  placement.Policy
	Metrics *metrics.Recorder
	Cfg     config.Config
}

// ProcessAndSendCommands is the handler's single entrypoint: given a
// container's replicas, its pending operations, the health scanner's
// classification result, and the maintenance policy parameter, decide
// whether and how to restore replication, and return the number of
// commands emitted.
//
// On success it returns (count, nil). Fatal error kinds are propagated
// as-is: scmerrors.NotLeader, scmerrors.CommandTargetOverloaded, any
// placement-policy error other than scmerrors.FailedToFindSuitableNode,
// and scmerrors.InsufficientDatanodes (raised only after commands already
// obtained have been emitted, so progress is not lost).
func (h *Handler) ProcessAndSendCommands(
	ctx context.Context,
	container model.Container,
	replicas []model.ContainerReplica,
	pendingOps []model.PendingOp,
	classification model.ClassificationResult,
	minHealthyForMaintenance int,
) (int, error) {
	ctx = logging.WithInvocationID(ctx)

	if classification.Tag != model.HealthUnderReplicated {
		return 0, nil
	}

	nodeStatus := h.Manager.GetNodeStatus

	with := replicacount.New(container, replicas, pendingOps, minHealthyForMaintenance, true, nodeStatus)
	without := replicacount.New(container, replicas, pendingOps, minHealthyForMaintenance, false, nodeStatus)

	decision := verifier.Verify(with, without)
	view := verifier.Resolve(decision, with, without)
	if view == nil {
		logging.InfofCtx(ctx, "container %d: no action warranted", container.ID)
		return 0, nil
	}

	sources := source.Select(container, view, pendingOps, nodeStatus)
	if len(sources) == 0 {
		logging.WarningfCtx(ctx, "container %d: under-replicated but no eligible source found", container.ID)
		return 0, nil
	}

	constraints := placement.BuildConstraints(replicas, pendingOps, nodeStatus)
	required := view.AdditionalReplicaNeeded()
	targets, targetErr := placement.SelectTargets(view, constraints, h.Cfg.ContainerSizeBytes, h.Policy)

	if targetErr != nil {
		if _, noSuitableNode := targetErr.(scmerrors.FailedToFindSuitableNode); noSuitableNode {
			h.runFallback(ctx, container, view, pendingOps)
			return 0, targetErr
		}
		return 0, targetErr
	}

	mode := emitter.ModePull
	if h.Cfg.ReplicationPush {
		mode = emitter.ModePush
	}

	emitted, emitErr := emitter.Emit(ctx, h.Manager, container.ID, sources, targets, mode)
	if emitErr != nil {
		return emitted, emitErr
	}

	if len(targets) < required {
		h.Metrics.IncPartialReplication(container.Lifecycle.String())
		return emitted, scmerrors.InsufficientDatanodes{Needed: required, Got: len(targets)}
	}

	return emitted, nil
}

func (h *Handler) runFallback(
	ctx context.Context,
	container model.Container,
	view *replicacount.Calculator,
	pendingOps []model.PendingOp,
) {
	pendingDeletes := 0
	for _, p := range pendingOps {
		if p.IsDelete() {
			pendingDeletes++
		}
	}
	scheduled, err := emitter.EmitFallbackDelete(ctx, h.Manager, container.ID, view.GetReplicas(), pendingDeletes, MaxPendingDeletesForFallback)
	if err != nil {
		logging.ErrorfCtx(ctx, "container %d: fallback delete failed: %v", container.ID, err)
		return
	}
	if scheduled {
		logging.InfofCtx(ctx, "container %d: fallback delete scheduled to free a placement slot", container.ID)
	}
}
