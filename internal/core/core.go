package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sotstack/sotctl/internal/compose"
	"github.com/sotstack/sotctl/internal/config"
	"github.com/sotstack/sotctl/internal/probe"
	"github.com/sotstack/sotctl/internal/stack"
)

// Orchestrator sequences stack startup, verification and cleanup against one
// resolved compose client. Strictly sequential: phase gates are synchronous
// barriers and nothing here spawns goroutines.
type Orchestrator struct {
	cfg     config.Config
	client  *compose.Client
	secrets map[string]string

	// httpHost is where published ports are reachable: localhost, or the
	// remote docker host in remote mode.
	httpHost string

	interval time.Duration
	out      io.Writer
	in       io.Reader

	// httpProbe is swappable so tests never open sockets.
	httpProbe func(url string) probe.Predicate
}

func New(cfg config.Config, client *compose.Client, secrets map[string]string) *Orchestrator {
	host := "localhost"
	if cfg.Remote.Enabled && cfg.Remote.Host != "" {
		host = cfg.Remote.Host
	}
	return &Orchestrator{
		cfg:       cfg,
		client:    client,
		secrets:   secrets,
		httpHost:  host,
		interval:  cfg.Interval(),
		out:       os.Stdout,
		in:        os.Stdin,
		httpProbe: probe.HTTPReachable,
	}
}

// budget floors a per-phase timeout at one poll interval so a zero setting
// never produces an instant timeout.
func (o *Orchestrator) budget(seconds int) time.Duration {
	d := time.Duration(seconds) * time.Second
	if d < o.interval {
		return o.interval
	}
	return d
}

func (o *Orchestrator) httpURL(sc config.StackConfig) string {
	return fmt.Sprintf("http://%s:%d%s", o.httpHost, sc.HTTPPort, sc.HealthPath)
}

// readyPredicate builds the gate probe for one service.
func (o *Orchestrator) readyPredicate(u stack.Unit) probe.Predicate {
	sc := u.Stack.Config
	switch u.Service.Ready {
	case stack.ReadyPostgres:
		return func(ctx context.Context) (bool, error) {
			_, err := o.client.Exec(ctx, sc, u.Service.Name,
				"pg_isready", "-q", "-U", sc.Database.User, "-d", sc.Database.Name)
			return err == nil, err
		}
	case stack.ReadyRedis:
		return func(ctx context.Context) (bool, error) {
			res, err := o.client.Exec(ctx, sc, u.Service.Name, "redis-cli", "ping")
			if err != nil {
				return false, err
			}
			return strings.Contains(res.Stdout, "PONG"), nil
		}
	case stack.ReadyHealthyHTTP:
		httpOK := o.httpProbe(o.httpURL(sc))
		return func(ctx context.Context) (bool, error) {
			st, ok, err := o.serviceState(ctx, sc, u.Service.Name)
			if err != nil || !ok || !st.Healthy() {
				return false, err
			}
			return httpOK(ctx)
		}
	case stack.ReadyHTTP:
		return o.httpProbe(o.httpURL(sc))
	default: // ReadyRunning
		return func(ctx context.Context) (bool, error) {
			st, ok, err := o.serviceState(ctx, sc, u.Service.Name)
			if err != nil || !ok {
				return false, err
			}
			return st.Running(), nil
		}
	}
}

func (o *Orchestrator) serviceState(ctx context.Context, sc config.StackConfig, service string) (compose.ContainerState, bool, error) {
	states, err := o.client.PS(ctx, sc)
	if err != nil {
		return compose.ContainerState{}, false, err
	}
	st, ok := compose.FindService(states, service)
	return st, ok, nil
}

// confirm prompts for a destructive action. A non-interactive yes short-cuts
// the prompt. Anything but y/yes declines.
func (o *Orchestrator) confirm(action string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Fprintf(o.out, "%s. Continue? [y/N]: ", action)
	scanner := bufio.NewScanner(o.in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
