package core

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/ripple/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type HarnessEvent struct {
	Event RouterEvent
	Desc  string
	Args  []any
}

// RouterHarness records every event the routing core produces
type RouterHarness struct {
	events []HarnessEvent
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	h.events = append(h.events, HarnessEvent{Event: event, Desc: desc, Args: args})
}

// GetEvents returns and clears the recorded events
func (h *RouterHarness) GetEvents() HarnessEvents {
	x := h.events
	h.events = nil
	return x
}

type HarnessEvents []HarnessEvent

func (e HarnessEvents) String() string {
	out := make([]string, 0)
	for _, ev := range e {
		cur := ev.Event.String()
		for _, arg := range ev.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// contains reports whether an event of the given type carries every key/value pair in kv
func (e HarnessEvents) contains(event RouterEvent, kv ...any) bool {
	for _, ev := range e {
		if ev.Event != event {
			continue
		}
		match := true
		for i := 0; i+1 < len(kv); i += 2 {
			found := false
			for j := 0; j+1 < len(ev.Args); j += 2 {
				if ev.Args[j] == kv[i] && cmp.Equal(ev.Args[j+1], kv[i+1], equateIds) {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, event RouterEvent, kv ...any) {
	t.Helper()
	if e.contains(event, kv...) {
		return
	}
	t.Fatal("Expected event not found: ", event, " with args: ", kv, " in\n", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, event RouterEvent, kv ...any) {
	t.Helper()
	if e.contains(event, kv...) {
		t.Fatal("Unexpected event found: ", event, " with args: ", kv, " in\n", e)
	}
}

var equateIds = cmpopts.EquateComparable(state.NodeId{})

// id returns the router listening on 127.0.0.1:port
func id(port uint16) state.NodeId {
	return state.NodeIdFrom(netip.MustParseAddr("127.0.0.1"), port)
}

func vec(sender state.NodeId, entries map[state.NodeId]state.Cost) state.AdvertisedVector {
	return state.AdvertisedVector{Sender: sender, Entries: entries}
}

func newRouter(self state.NodeId) (*state.RouterState, *RouterHarness) {
	return state.NewRouterState(self, true), &RouterHarness{}
}

func assertRoute(t *testing.T, s *state.RouterState, dst state.NodeId, cost state.Cost, nh state.NodeId) {
	t.Helper()
	want := state.RoutingEntry{Destination: dst, Cost: cost, NextHop: nh}
	got, err := s.Lookup(dst)
	if err != nil {
		t.Fatalf("no route to %s: %v\n%s", dst, err, s.StringRoutes())
	}
	if diff := cmp.Diff(want, got, equateIds); diff != "" {
		t.Fatalf("route to %s mismatch (-want +got):\n%s", dst, diff)
	}
}
