package remote

import (
	"testing"

	"github.com/sotstack/sotctl/internal/compose"
	"github.com/sotstack/sotctl/internal/config"
)

func TestShellLine(t *testing.T) {
	r := &Runner{baseDir: "/opt/stacks"}
	cmd := compose.Command{
		Name: "docker",
		Args: []string{"compose", "-p", "netbox", "up", "-d"},
		Dir:  "netbox",
		Env:  map[string]string{"SKIP_STARTUP_SCRIPTS": "true"},
	}
	got := r.shellLine(cmd)
	want := "cd /opt/stacks/netbox && SKIP_STARTUP_SCRIPTS=true docker compose -p netbox up -d"
	if got != want {
		t.Errorf("shell line mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestShellLineQuoting(t *testing.T) {
	r := &Runner{}
	cmd := compose.Command{
		Name: "docker",
		Args: []string{"exec", "-T", "netbox", "python", "-c", "print('x')"},
	}
	got := r.shellLine(cmd)
	want := `docker exec -T netbox python -c 'print('\''x'\'')'`
	if got != want {
		t.Errorf("quoting mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestQuotePlainWordUntouched(t *testing.T) {
	if quote("up") != "up" {
		t.Errorf("plain word must not be quoted: %q", quote("up"))
	}
	if quote("") != "''" {
		t.Errorf("empty word must be quoted: %q", quote(""))
	}
	if quote("a b") != "'a b'" {
		t.Errorf("spaced word must be quoted: %q", quote("a b"))
	}
}

func TestNewRunnerRequiresHost(t *testing.T) {
	// Host/user are validated before any file access.
	if _, err := NewRunner(config.Defaults()); err == nil {
		t.Fatal("expected error without host/user")
	}
}
