package compose

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sotstack/sotctl/internal/config"
)

// fakeRunner scripts responses per command prefix and records every command.
type fakeRunner struct {
	calls []Command
	// fail maps a command-string prefix to the stderr it fails with.
	fail map[string]string
	// stdout maps a command-string prefix to scripted stdout.
	stdout map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	f.calls = append(f.calls, cmd)
	s := cmd.String()
	for prefix, stderr := range f.fail {
		if strings.HasPrefix(s, prefix) {
			return Result{Stderr: stderr, ExitCode: 1}, fmt.Errorf("exit status 1")
		}
	}
	for prefix, out := range f.stdout {
		if strings.HasPrefix(s, prefix) {
			return Result{Stdout: out}, nil
		}
	}
	return Result{}, nil
}

func TestPreflightPrefersPlugin(t *testing.T) {
	r := &fakeRunner{}
	c, err := Preflight(context.Background(), r)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	if c.Form() != "docker compose" {
		t.Errorf("expected plugin form, got %q", c.Form())
	}
}

func TestPreflightFallsBackToLegacy(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{"docker compose version": "unknown command"}}
	c, err := Preflight(context.Background(), r)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	if c.Form() != "docker-compose" {
		t.Errorf("expected legacy form, got %q", c.Form())
	}
}

func TestPreflightFatalWithoutCompose(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{
		"docker compose version": "unknown command",
		"docker-compose version": "executable not found",
	}}
	if _, err := Preflight(context.Background(), r); err == nil {
		t.Fatal("expected error when no compose form exists")
	}
}

func TestPreflightFatalWithoutDaemon(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{"docker info": "cannot connect to the docker daemon"}}
	if _, err := Preflight(context.Background(), r); err == nil {
		t.Fatal("expected error when daemon is unreachable")
	}
	// Preflight must not attempt anything past the daemon check.
	if len(r.calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(r.calls))
	}
}

func TestUpBuildsProjectScopedCommand(t *testing.T) {
	r := &fakeRunner{}
	c, err := Preflight(context.Background(), r)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	stack := config.Defaults().NetBox
	if err := c.Up(context.Background(), stack, map[string]string{"SKIP_MIGRATIONS": "true"}, "netbox-worker"); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	last := r.calls[len(r.calls)-1]
	want := "docker compose -p netbox -f netbox/docker-compose.yml up -d --no-recreate netbox-worker"
	if last.String() != want {
		t.Errorf("command mismatch:\n got %q\nwant %q", last.String(), want)
	}
	if last.Env["SKIP_MIGRATIONS"] != "true" {
		t.Errorf("expected env injection, got %v", last.Env)
	}
	if last.Dir != "netbox" {
		t.Errorf("expected working dir netbox, got %q", last.Dir)
	}
}

func TestParseComposePSLines(t *testing.T) {
	out := `{"Name":"netbox-postgres","Service":"postgres","State":"running","Health":"healthy"}
{"Name":"netbox","Service":"netbox","State":"running","Health":"starting"}
{"Name":"netbox-worker","Service":"netbox-worker","State":"exited","Health":""}`
	states, err := parseComposePS(out)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 states, got %d", len(states))
	}
	if !states[0].Healthy() || !states[0].Running() {
		t.Errorf("postgres should be running and healthy: %+v", states[0])
	}
	if states[1].Healthy() {
		t.Errorf("starting must not count as healthy")
	}
	if states[2].Running() {
		t.Errorf("exited must not count as running")
	}
}

func TestParseComposePSArray(t *testing.T) {
	out := `[{"Name":"nautobot-db","Service":"db","State":"running","Health":"healthy"}]`
	states, err := parseComposePS(out)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(states) != 1 || states[0].Service != "db" {
		t.Fatalf("unexpected states: %+v", states)
	}
}

func TestParseComposePSEmpty(t *testing.T) {
	states, err := parseComposePS("\n")
	if err != nil || states != nil {
		t.Fatalf("expected nil, nil for empty output, got %v, %v", states, err)
	}
}

func TestRemoveAbsentResourcesSucceeds(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{
		"docker rm -f":      `Error response from daemon: No such container: netbox-old`,
		"docker volume rm":  `Error: No such volume: nautobot_postgres_data`,
		"docker network rm": `Error: network netbox_default not found`,
	}}
	c := &Client{runner: r, form: []string{"docker", "compose"}}
	ctx := context.Background()
	if err := c.RemoveContainer(ctx, "netbox-old"); err != nil {
		t.Errorf("absent container should be success: %v", err)
	}
	if err := c.RemoveVolume(ctx, "nautobot_postgres_data"); err != nil {
		t.Errorf("absent volume should be success: %v", err)
	}
	if err := c.RemoveNetwork(ctx, "netbox_default"); err != nil {
		t.Errorf("absent network should be success: %v", err)
	}
}

func TestRemoveRealFailureSurfaces(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{
		"docker volume rm": `Error response from daemon: volume is in use`,
	}}
	c := &Client{runner: r, form: []string{"docker", "compose"}}
	if err := c.RemoveVolume(context.Background(), "nautobot_postgres_data"); err == nil {
		t.Fatal("in-use volume must surface an error")
	}
}

func TestListContainerNames(t *testing.T) {
	r := &fakeRunner{stdout: map[string]string{
		"docker ps -a": "netbox\nnetbox-postgres\nnautobot_nautobot_1\n",
	}}
	c := &Client{runner: r, form: []string{"docker", "compose"}}
	names, err := c.ListContainerNames(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 3 || names[2] != "nautobot_nautobot_1" {
		t.Fatalf("unexpected names: %v", names)
	}
}
