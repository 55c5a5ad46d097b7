package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/encodeous/ripple/perf"
	"github.com/encodeous/ripple/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RunOptions are command line overrides applied on top of the configuration file.
type RunOptions struct {
	LogPath   string
	CtlAddr   string
	DebugAddr string
	Verbose   bool
	// Console, if not nil, is read for interactive commands
	Console io.Reader
}

// Bootstrap loads the configuration at configPath and runs the router until it is interrupted.
func Bootstrap(configPath string, opts RunOptions) error {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	cfg, err := state.ReadNodeConfig(configPath)
	if err != nil {
		return err
	}
	if opts.LogPath != "" {
		cfg.LogPath = opts.LogPath
	}
	if opts.CtlAddr != "" {
		cfg.CtlAddr = opts.CtlAddr
	}
	err = state.NodeConfigValidator(cfg)
	if err != nil {
		return err
	}
	if opts.DebugAddr != "" {
		go func() {
			slog.Warn("debug server stopped", "err", http.ListenAndServe(opts.DebugAddr, nil))
		}()
	}
	aux := make(map[string]any)
	if opts.Console != nil {
		aux["console"] = opts.Console
	}
	return Start(*cfg, level, aux, nil)
}

// NewLogger builds the router's logger: a console handler, plus a rotated log file if cfg.LogPath is set.
func NewLogger(cfg state.NodeCfg, logLevel slog.Level, console io.Writer) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: cfg.Id.String(),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogPath != "" {
		err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
		closer = lj
		handlers = append(handlers, slog.NewTextHandler(lj, &slog.HandlerOptions{Level: logLevel}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Start runs a router with the given configuration until its context is cancelled.
// aux carries objects injected by the host: "link" replaces the UDP socket with any
// state.PacketLink, "console" is an io.Reader of interactive commands, and "ready" is a
// chan *state.State that receives the router state once every module is initialized.
// If initState is not nil, it receives the router state before the modules are initialized.
func Start(cfg state.NodeCfg, logLevel slog.Level, aux map[string]any, initState **state.State) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	dispatch := make(chan func(env *state.State) error, state.DispatchBufferSize)

	state.ExpandNodeConfig(&cfg)
	logger, logCloser, err := NewLogger(cfg, logLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	if aux == nil {
		aux = make(map[string]any)
	}

	s := state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			NodeCfg:         cfg,
			Log:             logger,
			AuxConfig:       aux,
		},
	}
	if initState != nil {
		*initState = &s
	}

	s.Log.Info("init modules")
	err = initModules(&s)
	if err != nil {
		s.Stopping.Store(true)
		s.Cancel(err)
		cleanupModules(&s)
		return err
	}
	s.Log.Info("init modules complete")

	if ready, ok := aux["ready"].(chan *state.State); ok {
		ready <- &s
	}
	if r, ok := aux["console"].(io.Reader); ok {
		go RunConsole(s.Env, r, os.Stdout)
	}

	s.Log.Info("router started, send SIGINT or Ctrl+C to exit", "id", cfg.Id)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
			return
		}
	}()

	return MainLoop(&s, dispatch)
}

func moduleName(m state.NyModule) string {
	return reflect.TypeOf(m).String()
}

func initModules(s *state.State) error {
	var modules []state.NyModule
	modules = append(modules, &RouterTrace{})
	modules = append(modules, &DvRouter{})
	modules = append(modules, &Messenger{})
	modules = append(modules, &Transport{})
	modules = append(modules, &Controller{})

	for _, module := range modules {
		name := moduleName(module)
		s.Modules[name] = module
		if err := module.Init(s); err != nil {
			return fmt.Errorf("init %s: %w", name, err)
		}
		s.ModuleOrder = append(s.ModuleOrder, name)
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	cleanupModules(s)
	s.Log.Info("stopped")
}

// cleanupModules tears initialized modules down in reverse order.
func cleanupModules(s *state.State) {
	s.Log.Info("cleaning up modules")
	for i := len(s.ModuleOrder) - 1; i >= 0; i-- {
		name := s.ModuleOrder[i]
		err := s.Modules[name].Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", name, "error", err)
		}
	}
}
