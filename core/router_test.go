package core

import (
	"testing"

	"github.com/encodeous/ripple/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	A = id(1000)
	B = id(1001)
	C = id(1002)
	D = id(1003)
	E = id(1004)
)

func TestAddCostSaturates(t *testing.T) {
	assert.Equal(t, state.Cost(5), AddCost(2, 3))
	assert.Equal(t, state.INF, AddCost(state.INF, 0))
	assert.Equal(t, state.INF, AddCost(0, state.INF))
	assert.Equal(t, state.INF, AddCost(state.INFM, 5))
	assert.Equal(t, state.INFM, AddCost(state.INFM-1, 1))
}

func TestAddNeighbourCreatesDirectRoute(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 5)
	assertRoute(t, s, B, 5, B)
	ev := h.GetEvents()
	ev.AssertContains(t, NeighbourAdded, "neigh", B)
	ev.AssertContains(t, RouteAdded, "dst", B)

	AddNeighbour(s, h, A, 1)
	h.GetEvents().AssertContains(t, InconsistentState)
	_, err := s.Lookup(A)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
}

// A(1000) - B(1001) weight 5, B - C(1002) weight 2
func TestRelayThenDirectLink(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 5)

	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{C: 0}))
	assertRoute(t, s, C, 5, B)

	// a later topology change links A and C directly
	AddNeighbour(s, h, C, 3)
	assertRoute(t, s, C, 3, C)
	h.GetEvents().AssertContains(t, RouteImproved, "dst", C)
}

func TestSourceIsAuthoritative(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 2)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 3}))
	assertRoute(t, s, D, 5, B)

	// the cost follows the next hop even when it gets worse
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 7}))
	assertRoute(t, s, D, 9, B)
	h.GetEvents().AssertContains(t, RouteWorsened, "dst", D)

	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 1}))
	assertRoute(t, s, D, 3, B)
}

func TestStrictImprovementSwitching(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	AddNeighbour(s, h, C, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 3}))
	assertRoute(t, s, D, 4, B)
	h.GetEvents()

	// ties keep the existing next hop
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 3}))
	assertRoute(t, s, D, 4, B)
	h.GetEvents().AssertNotContains(t, RouteImproved, "dst", D)

	// worse candidates from other neighbours are ignored
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 10}))
	assertRoute(t, s, D, 4, B)

	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 2}))
	assertRoute(t, s, D, 3, C)
	h.GetEvents().AssertContains(t, RouteImproved, "dst", D)
}

func TestDirectLinkInvariant(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 5)
	AddNeighbour(s, h, C, 1)

	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{B: 1}))
	assertRoute(t, s, B, 2, C)

	// C's path to B degrades, the direct link takes over again
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{B: 10}))
	assertRoute(t, s, B, 5, B)

	for _, n := range s.Neighbours.Snapshot() {
		e, err := s.Lookup(n.Id)
		require.NoError(t, err)
		assert.LessOrEqual(t, e.Cost, n.LinkWeight)
	}
}

func TestInfinityRetractsAndReselects(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	AddNeighbour(s, h, C, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 3}))
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 5}))
	assertRoute(t, s, D, 4, B)
	h.GetEvents()

	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: state.INF}))
	assertRoute(t, s, D, 6, C)

	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: state.INF}))
	_, err := s.Lookup(D)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
	h.GetEvents().AssertContains(t, RouteRetracted, "dst", D)
}

func TestInfinityNeverCreatesRoute(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: state.INF, E: state.INFM}))
	_, err := s.Lookup(D)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
	_, err = s.Lookup(E)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
}

func TestWithdrawnDestination(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{C: 1, D: 2}))
	assertRoute(t, s, D, 3, B)

	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{C: 1}))
	_, err := s.Lookup(D)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
	assertRoute(t, s, C, 2, B)
	assertRoute(t, s, B, 1, B)
}

func TestSelfIsNeverRouted(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{A: 1, C: 1}))
	_, err := s.Lookup(A)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
	assertRoute(t, s, C, 2, B)

	HandleVector(s, h, A, vec(A, map[state.NodeId]state.Cost{D: 1}))
	h.GetEvents().AssertContains(t, InconsistentState)
	_, err = s.Lookup(D)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
}

func TestNeighbourDiscovery(t *testing.T) {
	s, h := newRouter(A)

	v := vec(B, map[state.NodeId]state.Cost{C: 1})
	v.LinkWeight = 4
	HandleVector(s, h, B, v)
	h.GetEvents().AssertContains(t, NeighbourDiscovered, "neigh", B, "weight", state.Cost(4))
	assertRoute(t, s, B, 4, B)
	assertRoute(t, s, C, 5, B)

	// without a hint, the sender's cost to us is used
	HandleVector(s, h, D, vec(D, map[state.NodeId]state.Cost{A: 7}))
	w, err := s.Neighbours.WeightOf(D)
	require.NoError(t, err)
	assert.Equal(t, state.Cost(7), w)

	// poisoned or missing, fall back to the default
	HandleVector(s, h, E, vec(E, map[state.NodeId]state.Cost{A: state.INF}))
	w, err = s.Neighbours.WeightOf(E)
	require.NoError(t, err)
	assert.Equal(t, state.DefaultLinkWeight, w)
}

func TestDiscoveryPrefersStaticWeight(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 6)
	for range state.EvictionThreshold {
		RunLiveness(s, h)
	}
	assert.False(t, s.Neighbours.Contains(B))

	v := vec(B, map[state.NodeId]state.Cost{})
	v.LinkWeight = 2
	HandleVector(s, h, B, v)
	assertRoute(t, s, B, 6, B)
}

func TestLinkWeightChange(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	AddNeighbour(s, h, C, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 1}))
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 4}))
	assertRoute(t, s, D, 2, B)
	h.GetEvents()

	HandleLinkWeightChange(s, h, B, 10)
	h.GetEvents().AssertContains(t, LinkWeightChanged, "neigh", B, "old", state.Cost(1))
	// routes through B follow the new weight
	assertRoute(t, s, D, 11, B)
	assertRoute(t, s, B, 10, B)

	// C wins once it advertises again
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 4}))
	assertRoute(t, s, D, 5, C)

	// lowering the weight lets B's cached vector win straight away
	HandleLinkWeightChange(s, h, B, 1)
	assertRoute(t, s, D, 2, B)
	assertRoute(t, s, B, 1, B)
}

func TestLinkWeightChangeToNewNeighbour(t *testing.T) {
	s, h := newRouter(A)
	HandleLinkWeightChange(s, h, B, 3)
	assertRoute(t, s, B, 3, B)
	assert.Equal(t, state.Cost(3), s.Static[B])
}

func TestPoisonedReverse(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	AddNeighbour(s, h, C, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 1}))

	toB := VectorFor(s, B)
	toC := VectorFor(s, C)
	routes := s.Vectors.BestRoutes()
	for dst, entry := range routes {
		if entry.NextHop == B {
			assert.Equal(t, state.INF, toB[dst], "dst %s", dst)
		} else {
			assert.Equal(t, entry.Cost, toB[dst], "dst %s", dst)
		}
		if entry.NextHop == C {
			assert.Equal(t, state.INF, toC[dst], "dst %s", dst)
		} else {
			assert.Equal(t, entry.Cost, toC[dst], "dst %s", dst)
		}
	}
	assert.Len(t, toB, len(routes))
	assert.NotContains(t, toB, A)

	want := map[state.NodeId]state.Cost{B: 1, C: state.INF, D: 2}
	if diff := cmp.Diff(want, toC, equateIds); diff != "" {
		t.Fatalf("vector for C mismatch (-want +got):\n%s", diff)
	}
}

func TestPoisonedReverseDisabled(t *testing.T) {
	s := state.NewRouterState(A, false)
	h := &RouterHarness{}
	AddNeighbour(s, h, B, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 1}))
	toB := VectorFor(s, B)
	assert.Equal(t, state.Cost(2), toB[D])
	assert.Equal(t, state.Cost(1), toB[B])
}

func TestEvictionMakesUnreachable(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	AddNeighbour(s, h, C, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 1}))
	assertRoute(t, s, D, 2, B)
	h.GetEvents()

	for i := 0; i < state.EvictionThreshold; i++ {
		// C keeps talking, B stays silent
		HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{}))
		evicted := RunLiveness(s, h)
		if i < state.EvictionThreshold-1 {
			assert.Empty(t, evicted)
		} else {
			assert.Equal(t, []state.NodeId{B}, evicted)
		}
	}

	ev := h.GetEvents()
	ev.AssertContains(t, NeighbourEvicted, "neigh", B)
	assert.False(t, s.Neighbours.Contains(B))
	assert.True(t, s.Neighbours.Contains(C))
	_, ok := s.Vectors.Cached(B)
	assert.False(t, ok)

	_, err := s.Lookup(D)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
	_, err = s.Lookup(B)
	assert.ErrorIs(t, err, state.ErrUnknownDestination)
	assertRoute(t, s, C, 1, C)
}

func TestEvictionFallsBackToOtherNeighbour(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	AddNeighbour(s, h, C, 1)
	HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{D: 1}))
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 4, B: 2}))
	assertRoute(t, s, D, 2, B)

	for range state.EvictionThreshold - 1 {
		RunLiveness(s, h)
	}
	HandleVector(s, h, C, vec(C, map[state.NodeId]state.Cost{D: 4, B: 2}))
	assert.Equal(t, []state.NodeId{B}, RunLiveness(s, h))

	assertRoute(t, s, D, 5, C)
	// B is still reachable through C
	assertRoute(t, s, B, 3, C)
	for dst, e := range s.Vectors.BestRoutes() {
		assert.NotEqual(t, B, e.NextHop, "dst %s still routed through evicted neighbour", dst)
	}
}

func TestVectorResetsLiveness(t *testing.T) {
	s, h := newRouter(A)
	AddNeighbour(s, h, B, 1)
	for range 10 {
		RunLiveness(s, h)
		HandleVector(s, h, B, vec(B, map[state.NodeId]state.Cost{}))
	}
	assert.True(t, s.Neighbours.Contains(B))
}

func TestConvergenceLine(t *testing.T) {
	// A -1- B -1- C -1- D, simulated synchronously with poisoned reverse
	links := map[state.NodeId]map[state.NodeId]state.Cost{
		A: {B: 1},
		B: {A: 1, C: 1},
		C: {B: 1, D: 1},
		D: {C: 1},
	}
	routers := make(map[state.NodeId]*state.RouterState)
	h := &RouterHarness{}
	for self, neighs := range links {
		s := state.NewRouterState(self, true)
		for n, w := range neighs {
			AddNeighbour(s, h, n, w)
		}
		routers[self] = s
	}
	for range 4 {
		for self, s := range routers {
			for _, n := range s.Neighbours.Ids() {
				HandleVector(routers[n], h, self, vec(self, VectorFor(s, n)))
			}
		}
	}
	assertRoute(t, routers[A], D, 3, B)
	assertRoute(t, routers[D], A, 3, C)
	assertRoute(t, routers[B], D, 2, C)
	assertRoute(t, routers[C], A, 2, B)
}
