package state

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type NeighbourCfg struct {
	Id     NodeId
	Weight Cost
}

// NodeCfg represents the configuration of a single router
type NodeCfg struct {
	Id              NodeId         // the address and port this router listens on, also its identity
	Neighbours      []NeighbourCfg `yaml:",omitempty"`
	PoisonedReverse *bool          `yaml:"poisoned_reverse,omitempty"`  // defaults to true
	AdvertiseDelay  time.Duration  `yaml:"advertise_interval,omitempty"` // defaults to AdvertiseDelay
	LivenessDelay   time.Duration  `yaml:"liveness_interval,omitempty"`  // defaults to LivenessDelay
	InitialDelay    time.Duration  `yaml:"initial_delay,omitempty"`      // defaults to InitialDelay
	CtlAddr         string         `yaml:"ctl_addr,omitempty"`           // loopback control listener, disabled if empty
	AcceptFrom      []netip.Prefix `yaml:"accept_from,omitempty"`        // if not empty, datagrams from other sources are dropped
	LogPath         string         `yaml:"log_path,omitempty"`           // if not empty, logs are also written (and rotated) here
	LogMaxSizeMB    int            `yaml:"log_max_size_mb,omitempty"`
	LogMaxBackups   int            `yaml:"log_max_backups,omitempty"`
}

func (c *NodeCfg) UsePoisonedReverse() bool {
	return c.PoisonedReverse == nil || *c.PoisonedReverse
}

// ExpandNodeConfig fills in defaults for every unset field
func ExpandNodeConfig(c *NodeCfg) {
	if c.AdvertiseDelay == 0 {
		c.AdvertiseDelay = AdvertiseDelay
	}
	if c.LivenessDelay == 0 {
		c.LivenessDelay = LivenessDelay
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = InitialDelay
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = DefaultLogMaxBackups
	}
}

// ReadNodeConfig loads a router configuration. Files ending in .yaml or .yml are parsed as YAML,
// anything else as a plain topology file.
func ReadNodeConfig(path string) (*NodeCfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg *NodeCfg
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg = &NodeCfg{}
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		cfg, err = ParseTopology(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	ExpandNodeConfig(cfg)
	return cfg, nil
}

/*
ParseTopology reads the plain topology format. The first line names this router, every following
line a neighbour and the weight of the link to it:

	127.0.0.1 1000
	127.0.0.1 1001 5
	127.0.0.1 1002 3

Blank lines and lines starting with # are ignored.
*/
func ParseTopology(r io.Reader) (*NodeCfg, error) {
	cfg := &NodeCfg{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	haveSelf := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if !haveSelf {
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: expected \"<ip> <port>\", got %q", lineNo, line)
			}
			id, err := ParseNodeIdParts(fields[0], fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cfg.Id = id
			haveSelf = true
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected \"<ip> <port> <weight>\", got %q", lineNo, line)
		}
		id, err := ParseNodeIdParts(fields[0], fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		weight, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid weight %q: %w", lineNo, fields[2], err)
		}
		cfg.Neighbours = append(cfg.Neighbours, NeighbourCfg{Id: id, Weight: Cost(weight)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !haveSelf {
		return nil, fmt.Errorf("topology is empty")
	}
	return cfg, nil
}
