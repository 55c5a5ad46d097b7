//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/ripple/core"
	"github.com/encodeous/ripple/mock"
	"github.com/encodeous/ripple/state"
)

// VirtualHarness runs a set of routers in-process over an in-memory network.
type VirtualHarness struct {
	Net    *mock.Network
	Cfgs   map[string]state.NodeCfg
	States map[string]*state.State
	errs   chan error
	wg     sync.WaitGroup
}

func NewHarness(cfgs map[string]state.NodeCfg) *VirtualHarness {
	return &VirtualHarness{
		Net:    mock.NewNetwork(),
		Cfgs:   cfgs,
		States: make(map[string]*state.State),
		errs:   make(chan error, len(cfgs)),
	}
}

// Start launches every router and waits until all of them have initialized.
func (v *VirtualHarness) Start(t *testing.T) {
	t.Helper()
	for name, cfg := range v.Cfgs {
		link := v.Net.Attach(cfg.Id.AddrPort())
		ready := make(chan *state.State, 1)
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			labels := pprof.Labels("router", name)
			pprof.Do(context.Background(), labels, func(_ context.Context) {
				err := core.Start(cfg, slog.LevelDebug, map[string]any{
					"link":  link,
					"ready": ready,
				}, nil)
				if err != nil {
					v.errs <- fmt.Errorf("router %s: %w", name, err)
				}
			})
		}()
		select {
		case s := <-ready:
			v.States[name] = s
		case err := <-v.errs:
			t.Fatal(err)
		case <-time.After(5 * time.Second):
			t.Fatalf("router %s did not start", name)
		}
	}
}

// Stop cancels every router and waits for them to shut down.
func (v *VirtualHarness) Stop() {
	for _, s := range v.States {
		s.Cancel(fmt.Errorf("stopping harness"))
	}
	v.wg.Wait()
}

func (v *VirtualHarness) Id(name string) state.NodeId {
	return v.Cfgs[name].Id
}

// Route returns the current route of router name towards dst, if any.
func (v *VirtualHarness) Route(name, dst string) (state.RoutingEntry, bool) {
	res, err := v.States[name].DispatchWait(func(s *state.State) (any, error) {
		return s.Lookup(v.Id(dst))
	})
	if err != nil {
		return state.RoutingEntry{}, false
	}
	return res.(state.RoutingEntry), true
}

// HasRoute reports whether name currently reaches dst at cost via the next hop nh.
func (v *VirtualHarness) HasRoute(name, dst string, cost state.Cost, nh string) bool {
	e, ok := v.Route(name, dst)
	return ok && e.Cost == cost && e.NextHop == v.Id(nh)
}

func (v *VirtualHarness) Exec(name, line string) (string, error) {
	cmd, err := core.ParseCommand(line)
	if err != nil {
		return "", err
	}
	return core.ExecCommand(v.States[name].Env, cmd)
}

// Subscribe returns the router events of name.
func (v *VirtualHarness) Subscribe(name string) (<-chan core.TraceEvent, func()) {
	res, err := v.States[name].DispatchWait(func(s *state.State) (any, error) {
		return core.Get[*core.RouterTrace](s), nil
	})
	if err != nil {
		panic(err)
	}
	return res.(*core.RouterTrace).Subscribe(1024)
}
