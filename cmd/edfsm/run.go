package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/librescoot/edfsm"
	"github.com/librescoot/edfsm/bus"
	"github.com/librescoot/edfsm/bus/redisbus"
	"github.com/librescoot/edfsm/logging"
	"github.com/librescoot/edfsm/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the turnstile, reading coin, push and quit events from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
			cfg.Redis.Addr = addr
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
		}
		logger := logging.New(level)

		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("metrics"); addr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				logger.Info("serving metrics", "addr", addr)
				if err := http.ListenAndServe(addr, mux); err != nil {
					logger.Error("metrics server stopped", "err", err)
				}
			}()
		}

		stdout := &lockedWriter{w: cmd.OutOrStdout()}

		var (
			in   edfsm.InputBus
			out  edfsm.OutputBus
			feed feedFunc
		)
		if cfg.Redis.Addr != "" {
			b := redisbus.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
				redisbus.WithPrefix(cfg.Redis.Prefix),
				redisbus.WithLogger(logger),
			)
			defer b.Close()
			in, out = b, b
			feed = feedRedis(b)
			watchOutput(stdout, b)
		} else {
			input, output := bus.NewEmitter(), bus.NewEmitter()
			in, out = input, output
			feed = func(_ context.Context, ev edfsm.EventID) bool { return input.Emit(ev, nil) }
			watchOutput(stdout, output)
		}

		def := newTurnstile(in, out, cfg.UnlockTimeout,
			edfsm.WithName(cfg.Name),
			edfsm.WithSlog(logger),
			edfsm.WithHooks(m.Hooks()),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		t := &Turnstile{}
		var runErr error
		inst, err := def.Run(t, func(err error) { runErr = err })
		if err != nil {
			return err
		}

		go readInput(ctx, cmd.InOrStdin(), feed, inst, logger)

		select {
		case <-inst.Done():
		case <-ctx.Done():
			stopRun(inst, edfsm.Fail(ctx.Err()))
		}

		fmt.Fprintf(stdout, "coins=%d passes=%d alarms=%d\n", t.Coins, t.Passes, t.Alarms)
		return runErr
	},
}

func init() {
	runCmd.Flags().String("redis", "", "Redis address; events stay in process when empty")
	runCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	runCmd.Flags().String("metrics", "", "Address to serve Prometheus metrics on")
	rootCmd.AddCommand(runCmd)
}

// lockedWriter serializes writes coming from bus goroutines
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// watchOutput prints the turnstile's output events
func watchOutput(w io.Writer, out edfsm.InputBus) {
	for _, ev := range []edfsm.EventID{evOpen, evAlarm} {
		out.On(ev, edfsm.NewListener(func(payload any) {
			fmt.Fprintf(w, "%s %v\n", ev, payload)
		}))
	}
}

// feedFunc hands one input event to the machine and reports whether
// anything listened to it. It returns once the event has been delivered.
type feedFunc func(ctx context.Context, ev edfsm.EventID) bool

// feedRedis publishes over b. Redis delivers on the bus's own goroutine, so
// a listener added after the machine's is used to see the event through.
func feedRedis(b *redisbus.Bus) feedFunc {
	return func(ctx context.Context, ev edfsm.EventID) bool {
		consumed := b.ListenerCount(ev) > 0

		seen := make(chan struct{}, 1)
		l := edfsm.NewListener(func(any) {
			select {
			case seen <- struct{}{}:
			default:
			}
		})
		b.On(ev, l)
		defer b.RemoveListener(ev, l)

		if !b.Emit(ev, nil) {
			return false
		}
		select {
		case <-seen:
		case <-ctx.Done():
		}
		return consumed
	}
}

// readInput feeds one event per line until EOF, then ends the run. Each
// line waits for the machine to settle, so it reaches the state the
// previous line led to.
func readInput(ctx context.Context, r io.Reader, feed feedFunc, inst *edfsm.Instance, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !feed(ctx, edfsm.EventID(line)) {
			logger.Warn("nothing listens to input", "event", line)
		}
		if err := inst.Settle(ctx); err != nil {
			return
		}
		select {
		case <-inst.Done():
			return
		default:
		}
	}
	stopRun(inst, edfsm.End())
}

// stopRun resolves whichever activation is current with o and waits for the
// run to end. A lost race against a transition already under way is retried
// on the following state.
func stopRun(inst *edfsm.Instance, o edfsm.Outcome) {
	for !inst.Next(o) {
		select {
		case <-inst.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	<-inst.Done()
}
