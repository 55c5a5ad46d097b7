package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/encodeous/ripple/state"
)

// control commands
const (
	CmdPrint      = "PRINT"
	CmdNeighbours = "NEIGHBOURS"
	CmdChange     = "CHANGE"
	CmdMsg        = "MSG"
	CmdWatch      = "WATCH"
)

const ctlUsage = "commands: PRINT, NEIGHBOURS, MSG <dst-ip> <dst-port> <msg>, CHANGE <dst-ip> <dst-port> <new-weight>"

type Command struct {
	Op     string
	Target state.NodeId
	Weight state.Cost
	Text   string
}

// ParseCommand parses one line of the control protocol. Command names are case-insensitive.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command, %s", ctlUsage)
	}
	cmd := Command{Op: strings.ToUpper(fields[0])}
	switch cmd.Op {
	case CmdPrint, CmdNeighbours, CmdWatch:
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%s takes no arguments", cmd.Op)
		}
	case CmdChange:
		if len(fields) != 4 {
			return Command{}, fmt.Errorf("usage: CHANGE <dst-ip> <dst-port> <new-weight>")
		}
		id, err := state.ParseNodeIdParts(fields[1], fields[2])
		if err != nil {
			return Command{}, err
		}
		w, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid weight %q: %w", fields[3], err)
		}
		if err := state.WeightValidator(state.Cost(w)); err != nil {
			return Command{}, err
		}
		cmd.Target = id
		cmd.Weight = state.Cost(w)
	case CmdMsg:
		if len(fields) < 4 {
			return Command{}, fmt.Errorf("usage: MSG <dst-ip> <dst-port> <msg>")
		}
		id, err := state.ParseNodeIdParts(fields[1], fields[2])
		if err != nil {
			return Command{}, err
		}
		cmd.Target = id
		cmd.Text = strings.Join(fields[3:], " ")
	default:
		return Command{}, fmt.Errorf("unknown command %q, %s", fields[0], ctlUsage)
	}
	return cmd, nil
}

// ExecCommand runs a parsed command on the dispatch goroutine and returns its textual result.
func ExecCommand(e *state.Env, cmd Command) (string, error) {
	res, err := e.DispatchWait(func(s *state.State) (any, error) {
		switch cmd.Op {
		case CmdPrint:
			out := s.StringRoutes()
			if out == "" {
				return "(no routes)\n", nil
			}
			return out + "\n", nil
		case CmdNeighbours:
			out := s.StringNeighbours()
			if out == "" {
				out = "(no neighbours)\n"
			}
			return out, nil
		case CmdChange:
			err := Get[*DvRouter](s).ChangeLinkWeight(cmd.Target, cmd.Weight)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("link to %s now has weight %s\n", cmd.Target, cmd.Weight), nil
		case CmdMsg:
			id, err := Get[*Messenger](s).SendMessage(s, cmd.Target, cmd.Text)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("sent %s\n", id), nil
		}
		return nil, fmt.Errorf("%s is not supported here", cmd.Op)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// RunConsole reads commands line by line from r until it is exhausted or the router stops.
func RunConsole(e *state.Env, r io.Reader, w io.Writer) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if e.Context.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, err := ParseCommand(line)
		if err == nil && cmd.Op == CmdWatch {
			err = errors.New("WATCH is only available over the control socket")
		}
		if err != nil {
			fmt.Fprintln(w, err)
			continue
		}
		out, err := ExecCommand(e, cmd)
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			continue
		}
		fmt.Fprint(w, out)
	}
}

// Controller serves the control protocol on a loopback TCP listener.
// Every response is terminated by a zero byte.
type Controller struct {
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
}

func (c *Controller) Init(s *state.State) error {
	if s.NodeCfg.CtlAddr == "" {
		return nil
	}
	l, err := net.Listen("tcp", s.NodeCfg.CtlAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on control address %s: %w", s.NodeCfg.CtlAddr, err)
	}
	c.listener = l
	c.conns = make(map[net.Conn]struct{})
	s.Log.Info("control socket listening", "addr", l.Addr())
	c.wg.Add(1)
	go c.acceptLoop(s.Env)
	return nil
}

func (c *Controller) Cleanup(s *state.State) error {
	if c.listener == nil {
		return nil
	}
	err := c.listener.Close()
	c.mu.Lock()
	for conn := range c.conns {
		_ = conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
	return err
}

func (c *Controller) acceptLoop(e *state.Env) {
	defer c.wg.Done()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				e.Log.Warn("control accept failed", "err", err)
			}
			return
		}
		c.mu.Lock()
		c.conns[conn] = struct{}{}
		c.mu.Unlock()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer func() {
				c.mu.Lock()
				delete(c.conns, conn)
				c.mu.Unlock()
				_ = conn.Close()
			}()
			err := c.serve(e, conn)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				e.Log.Debug("control connection closed", "err", err)
			}
		}()
	}
}

func (c *Controller) serve(e *state.Env, conn net.Conn) error {
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	for {
		line, err := rw.ReadString('\n')
		if err != nil {
			return err
		}
		var out string
		cmd, err := ParseCommand(line)
		switch {
		case err != nil:
			out = "error: " + err.Error() + "\n"
		case cmd.Op == CmdWatch:
			return c.watch(e, rw)
		default:
			out, err = ExecCommand(e, cmd)
			if err != nil {
				out = "error: " + err.Error() + "\n"
			}
		}
		_, err = rw.WriteString(out)
		if err != nil {
			return err
		}
		err = rw.WriteByte(0)
		if err != nil {
			return err
		}
		err = rw.Flush()
		if err != nil {
			return err
		}
	}
}

// watch streams router events to the connection until either side goes away.
func (c *Controller) watch(e *state.Env, rw *bufio.ReadWriter) error {
	res, err := e.DispatchWait(func(s *state.State) (any, error) {
		return Get[*RouterTrace](s), nil
	})
	if err != nil {
		return err
	}
	events, stop := res.(*RouterTrace).Subscribe(state.TraceBufferSize)
	defer stop()

	// the client sends nothing after WATCH, so a finished read means it went away
	gone := make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(gone)
		_, _ = io.Copy(io.Discard, rw.Reader)
		stop()
	}()
	for {
		select {
		case <-gone:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_, err := fmt.Fprintf(rw, "%s %s %v\n", ev.Event, ev.Desc, ev.Args)
			if err != nil {
				return err
			}
			if err := rw.Flush(); err != nil {
				return err
			}
		case <-e.Context.Done():
			return nil
		}
	}
}

// CtlRequest sends a single command to a running router and returns its response.
func CtlRequest(ctx context.Context, addr, command string) (string, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	_, err = rw.WriteString(strings.TrimSpace(command) + "\n")
	if err != nil {
		return "", err
	}
	err = rw.Flush()
	if err != nil {
		return "", err
	}
	res, err := rw.ReadString(0)
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSuffix(res, "\x00"), nil
}
