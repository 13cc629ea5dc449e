package placement

import (
	"math/rand"

	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/model"
	"github.com/makinyemi/ozone-scm-reconciler/internal/scm/scmerrors"
)

// RackTopology exposes just enough topology information for the
// rack-aware reference policy: which rack a node lives on, and how much
// free space it currently reports. This is the boundary between the
// reconciliation handler and the real topology/rack graph, which this
// package treats as an external collaborator rather than something it
// builds itself.
type RackTopology interface {
	RackOf(node model.DatanodeID) string
	FreeSpaceBytes(node model.DatanodeID) int64
	AllNodes() []model.DatanodeID
}

// RackAwarePolicy is a reference PlacementPolicy that spreads chosen
// targets across distinct racks before doubling up, and prefers nodes
// with more free space within a rack, in the manner of
// weed/topology/volume_growth.go's findEmptySlotsForOneVolume: pick a
// main rack, then fill from other racks before reusing one.
type RackAwarePolicy struct {
	Topology RackTopology
	Rand     *rand.Rand
}

// NewRackAwarePolicy constructs a policy backed by topology, using a
// process-local random source for tie-breaking among equally free nodes.
func NewRackAwarePolicy(topology RackTopology, seed int64) *RackAwarePolicy {
	return &RackAwarePolicy{
		Topology: topology,
		Rand:     rand.New(rand.NewSource(seed)),
	}
}

// Choose implements Policy. It excludes NodeConstraints.Excluded and
// NodeConstraints.Used entirely, then greedily fills racks not already
// represented by a Used node before falling back to any remaining rack,
// so replicas spread across failure domains when possible.
func (p *RackAwarePolicy) Choose(constraints NodeConstraints, n int, sizeBytes int64) ([]model.DatanodeID, error) {
	unavailable := make(map[model.DatanodeID]struct{}, len(constraints.Used)+len(constraints.Excluded))
	for _, id := range constraints.Used {
		unavailable[id] = struct{}{}
	}
	for _, id := range constraints.Excluded {
		unavailable[id] = struct{}{}
	}

	usedRacks := make(map[string]struct{}, len(constraints.Used))
	for _, id := range constraints.Used {
		usedRacks[p.Topology.RackOf(id)] = struct{}{}
	}

	byRack := make(map[string][]model.DatanodeID)
	for _, id := range p.Topology.AllNodes() {
		if _, skip := unavailable[id]; skip {
			continue
		}
		if p.Topology.FreeSpaceBytes(id) < sizeBytes {
			continue
		}
		rack := p.Topology.RackOf(id)
		byRack[rack] = append(byRack[rack], id)
	}

	var chosen []model.DatanodeID

	// First pass: one node from each rack not already represented by a
	// used replica, preferring the most free space.
	for rack, candidates := range byRack {
		if len(chosen) >= n {
			break
		}
		if _, already := usedRacks[rack]; already {
			continue
		}
		best := p.pickMostFree(candidates)
		if best != "" {
			chosen = append(chosen, best)
			usedRacks[rack] = struct{}{}
			byRack[rack] = removeNode(candidates, best)
		}
	}

	// Second pass: fill remaining slots from any rack with spare
	// candidates, doubling up on racks if necessary.
	for len(chosen) < n {
		progressed := false
		for rack, candidates := range byRack {
			if len(chosen) >= n {
				break
			}
			best := p.pickMostFree(candidates)
			if best == "" {
				continue
			}
			chosen = append(chosen, best)
			byRack[rack] = removeNode(candidates, best)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if len(chosen) == 0 && n > 0 {
		return nil, scmerrors.FailedToFindSuitableNode{Reason: "no rack has a node with sufficient free space"}
	}
	return chosen, nil
}

// pickMostFree returns the candidate with the most free space, breaking
// ties uniformly at random via p.Rand rather than favoring whichever
// candidate happened to come first.
func (p *RackAwarePolicy) pickMostFree(candidates []model.DatanodeID) model.DatanodeID {
	var tied []model.DatanodeID
	var bestFree int64 = -1
	for _, id := range candidates {
		free := p.Topology.FreeSpaceBytes(id)
		switch {
		case free > bestFree:
			bestFree = free
			tied = []model.DatanodeID{id}
		case free == bestFree:
			tied = append(tied, id)
		}
	}
	if len(tied) == 0 {
		return ""
	}
	return tied[p.Rand.Intn(len(tied))]
}

func removeNode(nodes []model.DatanodeID, remove model.DatanodeID) []model.DatanodeID {
	out := make([]model.DatanodeID, 0, len(nodes))
	for _, n := range nodes {
		if n != remove {
			out = append(out, n)
		}
	}
	return out
}
