package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sotstack/sotctl/internal/probe"
	"github.com/sotstack/sotctl/internal/stack"
	"github.com/sotstack/sotctl/pkg/api"
)

// Up drives the three-phase sequenced startup. Each phase's services are
// started, then every gate of the phase must resolve ready before the next
// phase's start commands are issued. A timed-out gate aborts the whole run.
func (o *Orchestrator) Up(ctx context.Context, target api.Target) error {
	stacks := stack.Select(o.cfg, target)
	plan := stack.Phases(stacks)
	budgets := []time.Duration{
		o.budget(o.cfg.Timeouts.DatastoreSeconds),
		o.budget(o.cfg.Timeouts.WebSeconds),
		o.budget(o.cfg.Timeouts.WorkerSeconds),
	}

	for i, units := range plan {
		if len(units) == 0 {
			continue
		}
		phase := i + 1
		fmt.Fprintf(o.out, "Phase %d: starting %s\n", phase, unitNames(units))
		for _, u := range units {
			if err := o.client.Up(ctx, u.Stack.Config, u.Service.Env, u.Service.Name); err != nil {
				return fmt.Errorf("phase %d: %w", phase, err)
			}
		}
		for _, u := range units {
			log.Debug().Str("stack", u.Stack.Config.Project).Str("service", u.Service.Name).Msg("waiting for readiness")
			outcome := probe.WaitFor(ctx, o.interval, budgets[i], o.readyPredicate(u))
			if outcome != probe.Ready {
				return o.gateTimeout(ctx, phase, u, budgets[i])
			}
			fmt.Fprintf(o.out, "  %s/%s ready\n", u.Stack.Config.Project, u.Service.Name)
		}
	}
	fmt.Fprintln(o.out, "All services started.")
	return nil
}

// gateTimeout names the offending service and suggests the next diagnostic
// step. When the Nautobot web service stalls with the fresh-install migration
// failure in its logs, the error points at the manual repair instead of
// attempting it.
func (o *Orchestrator) gateTimeout(ctx context.Context, phase int, u stack.Unit, budget time.Duration) error {
	sc := u.Stack.Config
	hint := fmt.Sprintf("inspect logs with '%s -p %s -f %s logs %s'", o.client.Form(), sc.Project, sc.ComposeFile, u.Service.Name)
	if u.Stack.Target == api.TargetNautobot && u.Service.Role == stack.RoleWeb {
		if logs, err := o.client.Logs(ctx, sc, u.Service.Name); err == nil &&
			strings.Contains(logs, "does not exist") && strings.Contains(logs, "column") {
			return fmt.Errorf("phase %d: %s/%s not ready within %s: migrations failed on a fresh database "+
				"(drop-legacy-columns migration); run 'sotctl fix-migrations' to repair, then retry",
				phase, sc.Project, u.Service.Name, budget)
		}
	}
	return fmt.Errorf("phase %d: %s/%s not ready within %s; %s", phase, sc.Project, u.Service.Name, budget, hint)
}

func unitNames(units []stack.Unit) string {
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.Stack.Config.Project+"/"+u.Service.Name)
	}
	return strings.Join(names, ", ")
}
