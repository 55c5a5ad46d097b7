package state

import (
	"fmt"
	"net/netip"
	"slices"
)

func BindValidator(s string) error {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return err
	}
	if !ap.Addr().IsLoopback() {
		return fmt.Errorf("%s is not a loopback address", s)
	}
	return nil
}

func WeightValidator(w Cost) error {
	if w == 0 {
		return fmt.Errorf("link weight must be positive")
	}
	if w >= INFM {
		return fmt.Errorf("link weight %d is too large, must be below %d", w, INFM)
	}
	return nil
}

func NodeConfigValidator(node *NodeCfg) error {
	if !node.Id.IsValid() {
		return fmt.Errorf("node.Id is invalid")
	}
	seen := make([]NodeId, 0, len(node.Neighbours))
	for _, n := range node.Neighbours {
		if !n.Id.IsValid() {
			return fmt.Errorf("neighbour id is invalid")
		}
		if n.Id == node.Id {
			return fmt.Errorf("node %s must not be its own neighbour", n.Id)
		}
		if slices.Contains(seen, n.Id) {
			return fmt.Errorf("duplicate neighbour found: %s", n.Id)
		}
		if err := WeightValidator(n.Weight); err != nil {
			return fmt.Errorf("neighbour %s: %w", n.Id, err)
		}
		seen = append(seen, n.Id)
	}
	if node.AdvertiseDelay < 0 || node.LivenessDelay < 0 || node.InitialDelay < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if node.CtlAddr != "" {
		if err := BindValidator(node.CtlAddr); err != nil {
			return fmt.Errorf("node.CtlAddr is invalid: %w", err)
		}
	}
	for _, p := range node.AcceptFrom {
		if !p.IsValid() {
			return fmt.Errorf("accept_from contains an invalid prefix")
		}
	}
	return nil
}
