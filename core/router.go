package core

import (
	"fmt"
	"log/slog"

	"github.com/encodeous/ripple/perf"
	"github.com/encodeous/ripple/state"
)

// DvRouter owns the routing state and drives the periodic advertise and liveness tasks.
type DvRouter struct {
	*state.State
	trace *RouterTrace
}

func (r *DvRouter) Log(event RouterEvent, desc string, args ...any) {
	level := slog.LevelDebug
	switch event {
	case NeighbourAdded, NeighbourDiscovered, NeighbourEvicted, LinkWeightChanged, MessageDelivered:
		level = slog.LevelInfo
	case InconsistentState:
		level = slog.LevelWarn
	}
	r.Env.Log.Log(r.Context, level, fmt.Sprintf("%s %s", event.String(), desc), args...)
	if r.trace != nil {
		r.trace.Publish(TraceEvent{Event: event, Desc: desc, Args: args})
	}
}

func (r *DvRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	if t, ok := s.Modules[moduleName(&RouterTrace{})]; ok {
		r.trace = t.(*RouterTrace)
	}
	s.RouterState = state.NewRouterState(s.NodeCfg.Id, s.NodeCfg.UsePoisonedReverse())
	for _, n := range s.NodeCfg.Neighbours {
		AddNeighbour(s.RouterState, r, n.Id, n.Weight)
	}

	s.Log.Debug("schedule router tasks")
	s.Env.RepeatTask(func(s *state.State) error {
		advertiseAll(s)
		return nil
	}, s.NodeCfg.InitialDelay, s.NodeCfg.AdvertiseDelay)
	s.Env.RepeatTask(func(s *state.State) error {
		evicted := RunLiveness(s.RouterState, r)
		perf.Evictions.Add(float64(len(evicted)))
		return nil
	}, s.NodeCfg.InitialDelay, s.NodeCfg.LivenessDelay)
	return nil
}

func (r *DvRouter) Cleanup(s *state.State) error {
	r.State = nil
	r.trace = nil
	return nil
}

// ChangeLinkWeight applies a locally requested weight change and tells the neighbour about it,
// so both ends of the link agree.
func (r *DvRouter) ChangeLinkWeight(neigh state.NodeId, weight state.Cost) error {
	if err := state.WeightValidator(weight); err != nil {
		return err
	}
	if neigh == r.Id {
		return fmt.Errorf("cannot change the weight of a link to ourselves")
	}
	HandleLinkWeightChange(r.RouterState, r, neigh, weight)
	sendWeightUpdate(r.State, neigh, weight)
	return nil
}
