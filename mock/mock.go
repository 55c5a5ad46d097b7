package mock

import (
	"fmt"
	"time"

	"github.com/encodeous/ripple/state"
)

// Edge is an undirected link of the given weight between two named routers.
type Edge struct {
	A, B   string
	Weight state.Cost
}

// Topology builds router configurations for the named routers on consecutive loopback ports.
// Intervals are shortened so tests converge quickly.
func Topology(basePort uint16, names []string, edges []Edge) (map[string]state.NodeCfg, error) {
	ids := make(map[string]state.NodeId, len(names))
	cfgs := make(map[string]state.NodeCfg, len(names))
	for i, name := range names {
		id, err := state.ParseNodeId(fmt.Sprintf("127.0.0.1:%d", int(basePort)+i))
		if err != nil {
			return nil, err
		}
		ids[name] = id
		cfgs[name] = state.NodeCfg{
			Id:             id,
			AdvertiseDelay: 50 * time.Millisecond,
			LivenessDelay:  50 * time.Millisecond,
			InitialDelay:   10 * time.Millisecond,
		}
	}
	for _, e := range edges {
		a, ok := ids[e.A]
		if !ok {
			return nil, fmt.Errorf("unknown router %s", e.A)
		}
		b, ok := ids[e.B]
		if !ok {
			return nil, fmt.Errorf("unknown router %s", e.B)
		}
		ca, cb := cfgs[e.A], cfgs[e.B]
		ca.Neighbours = append(ca.Neighbours, state.NeighbourCfg{Id: b, Weight: e.Weight})
		cb.Neighbours = append(cb.Neighbours, state.NeighbourCfg{Id: a, Weight: e.Weight})
		cfgs[e.A], cfgs[e.B] = ca, cb
	}
	for name, cfg := range cfgs {
		state.ExpandNodeConfig(&cfg)
		if err := state.NodeConfigValidator(&cfg); err != nil {
			return nil, fmt.Errorf("router %s: %w", name, err)
		}
		cfgs[name] = cfg
	}
	return cfgs, nil
}

// MockCfg is a small five router mesh with one expensive shortcut.
func MockCfg(basePort uint16) (map[string]state.NodeCfg, error) {
	names := []string{"bob", "jeb", "kat", "eve", "ada"}
	return Topology(basePort, names, []Edge{
		{"bob", "jeb", 1},
		{"bob", "kat", 1},
		{"bob", "eve", 10},
		{"jeb", "kat", 1},
		{"kat", "ada", 1},
		{"kat", "eve", 1},
		{"eve", "ada", 2},
	})
}
