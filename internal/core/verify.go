package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/sotstack/sotctl/internal/compose"
	"github.com/sotstack/sotctl/internal/config"
	"github.com/sotstack/sotctl/internal/stack"
	"github.com/sotstack/sotctl/pkg/api"
)

// Report is the outcome of one verification pass.
type Report struct {
	Checks []api.CheckResult
}

func (r Report) Healthy() int {
	n := 0
	for _, c := range r.Checks {
		if c.State == api.CheckHealthy {
			n++
		}
	}
	return n
}

func (r Report) Total() int { return len(r.Checks) }

func (r Report) AllHealthy() bool { return r.Healthy() == r.Total() && r.Total() > 0 }

// Verify is the read-only post-check pass: per service it reports run state,
// health flag, a single lightweight HTTP probe for web services, and the
// superuser env echo. It never mutates runtime state and never remediates.
func (o *Orchestrator) Verify(ctx context.Context, target api.Target) (Report, error) {
	var report Report
	for _, s := range stack.Select(o.cfg, target) {
		states, err := o.client.PS(ctx, s.Config)
		if err != nil {
			return report, fmt.Errorf("verify %s: %w", s.Config.Project, err)
		}
		for _, svc := range s.Services {
			report.Checks = append(report.Checks, o.checkService(ctx, s, svc, states))
		}
	}

	for _, c := range report.Checks {
		fmt.Fprintf(o.out, "  %-12s %-22s %-10s %s\n", c.Stack, c.Service, c.State, c.Detail)
	}
	fmt.Fprintf(o.out, "%d of %d services healthy\n", report.Healthy(), report.Total())
	if !report.AllHealthy() {
		fmt.Fprintln(o.out, "Degraded. Next steps: inspect logs ('"+o.client.Form()+" -p <project> logs <service>'), or re-run 'sotctl clean' followed by 'sotctl up'.")
	}
	return report, nil
}

func (o *Orchestrator) checkService(ctx context.Context, s *stack.Stack, svc stack.Service, states []compose.ContainerState) api.CheckResult {
	check := api.CheckResult{Service: svc.Name, Stack: s.Target}
	st, found := compose.FindService(states, svc.Name)
	switch {
	case !found || st.State == "exited":
		check.State = api.CheckDown
		check.Detail = "not running"
		return check
	case !st.Running():
		check.State = api.CheckUnhealthy
		check.Detail = "state " + st.State
		return check
	case st.Health == "starting":
		check.State = api.CheckStarting
		return check
	case st.Health == "unhealthy":
		check.State = api.CheckUnhealthy
		check.Detail = "health flag unhealthy"
		return check
	}

	// Running, and either healthy or without a healthcheck.
	check.State = api.CheckHealthy

	if svc.Role == stack.RoleWeb {
		if ok, err := o.httpProbe(o.httpURL(s.Config))(ctx); !ok {
			check.State = api.CheckUnhealthy
			check.Detail = "http unreachable"
			if err != nil {
				check.Detail = "http: " + err.Error()
			}
			return check
		}
		check.Detail = "http ok"
		if echo := o.superuserEnvEcho(ctx, s.Config, svc.Name); echo != "" {
			check.Detail += ", " + echo
		}
	}
	return check
}

// superuserEnvEcho confirms the superuser provisioning env is wired into the
// web container. Read-only; absence is reported, not fixed.
func (o *Orchestrator) superuserEnvEcho(ctx context.Context, sc config.StackConfig, service string) string {
	if sc.Superuser.NameEnv == "" {
		return ""
	}
	res, err := o.client.Exec(ctx, sc, service, "printenv", sc.Superuser.NameEnv)
	if err != nil || strings.TrimSpace(res.Stdout) == "" {
		return sc.Superuser.NameEnv + " unset"
	}
	return sc.Superuser.NameEnv + " set"
}
