// Package nodestatus provides a cached GetNodeStatus lookup, the only
// query-style external collaborator the handler calls synchronously per
// replica. A bounded TTL cache in front of it, grounded on the corpus's
// use of github.com/karlseguin/ccache/v2 for exactly this shape of
// problem (see weed/filer2/filer.go, weed/iam/policy/policy_store.go),
// avoids a network hop for every replica of every container in a
// reconciliation pass.
package nodestatus

import (
	"time"

	"github.com/karlseguin/ccache/v2"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/scmerrors"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/transport"
)

const defaultTTL = 30 * time.Second

// Cache decorates a transport.ReplicationManager, adding a bounded TTL'd
// lookaside cache in front of GetNodeStatus only; every other method
// passes straight through to inner. A reconciliation pass calls
// GetNodeStatus once per replica per candidate view, and the "with
// unhealthy"/"without unhealthy" pair doubles that again, so caching it
// avoids a network round trip SCM already answered moments earlier in
// the same pass.
type Cache struct {
	inner transport.ReplicationManager
	ttl   time.Duration
	cache *ccache.Cache
}

// NewCache wraps inner with an in-memory cache holding up to maxItems
// entries for ttl each. A zero ttl uses defaultTTL.
func NewCache(inner transport.ReplicationManager, maxItems int64, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		inner: inner,
		ttl:   ttl,
		cache: ccache.New(ccache.Configure().MaxSize(maxItems)),
	}
}

// GetNodeStatus returns the cached status for datanode, populating the
// cache on miss. An inner lookup miss surfaces as scmerrors.NodeNotFound;
// callers at the handler's edges treat that as "unhealthy, skip" and never
// propagate it further.
func (c *Cache) GetNodeStatus(datanode model.DatanodeID) (model.NodeStatus, error) {
	item := c.cache.Get(string(datanode))
	if item != nil && !item.Expired() {
		return item.Value().(model.NodeStatus), nil
	}

	status, err := c.inner.GetNodeStatus(datanode)
	if err != nil {
		return model.NodeStatus{}, scmerrors.NodeNotFound{Datanode: string(datanode)}
	}
	c.cache.Set(string(datanode), status, c.ttl)
	return status, nil
}

// Invalidate drops the cached entry for datanode, so the next lookup goes
// to inner. Callers use this after sending a command that is expected to
// change a node's operational or health state.
func (c *Cache) Invalidate(datanode model.DatanodeID) {
	c.cache.Delete(string(datanode))
}

func (c *Cache) SendThrottledReplicationCommand(container model.ContainerID, sources []model.DatanodeID, target model.DatanodeID, priority transport.Priority) error {
	return c.inner.SendThrottledReplicationCommand(container, sources, target, priority)
}

func (c *Cache) SendDatanodeCommand(container model.ContainerID, sources []model.DatanodeID, target model.DatanodeID) error {
	return c.inner.SendDatanodeCommand(container, sources, target)
}

func (c *Cache) SendDeleteCommand(container model.ContainerID, replicaIndex int, datanode model.DatanodeID, forceDelete bool) error {
	return c.inner.SendDeleteCommand(container, replicaIndex, datanode, forceDelete)
}
