package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sotstack/sotctl/internal/config"
)

// Client wraps the container runtime control plane. The compose invocation
// form is resolved once by Preflight and reused for the whole run.
type Client struct {
	runner Runner
	form   []string
}

// Preflight verifies the runtime daemon answers and resolves the compose
// invocation form, preferring the plugin over the legacy standalone binary.
// It performs no other work and is safe to call on every invocation.
func Preflight(ctx context.Context, runner Runner) (*Client, error) {
	if _, err := runner.Run(ctx, Command{Name: "docker", Args: []string{"info", "--format", "{{.ServerVersion}}"}}); err != nil {
		return nil, fmt.Errorf("container runtime unavailable (is the docker daemon running?): %w", err)
	}
	if _, err := runner.Run(ctx, Command{Name: "docker", Args: []string{"compose", "version"}}); err == nil {
		log.Debug().Str("form", "docker compose").Msg("compose plugin resolved")
		return &Client{runner: runner, form: []string{"docker", "compose"}}, nil
	}
	if _, err := runner.Run(ctx, Command{Name: "docker-compose", Args: []string{"version"}}); err == nil {
		log.Debug().Str("form", "docker-compose").Msg("legacy compose binary resolved")
		return &Client{runner: runner, form: []string{"docker-compose"}}, nil
	}
	return nil, fmt.Errorf("neither 'docker compose' nor 'docker-compose' is available")
}

// Form returns the resolved invocation form, e.g. "docker compose".
func (c *Client) Form() string { return strings.Join(c.form, " ") }

func (c *Client) composeCmd(stack config.StackConfig, env map[string]string, args ...string) Command {
	full := append([]string{}, c.form[1:]...)
	full = append(full, "-p", stack.Project, "-f", stack.ComposeFile)
	full = append(full, args...)
	return Command{Name: c.form[0], Args: full, Dir: stack.WorkingDir, Env: env}
}

// Up starts the named services detached. env is injected into the compose
// invocation for interpolation (worker skip-migration flags ride here).
func (c *Client) Up(ctx context.Context, stack config.StackConfig, env map[string]string, services ...string) error {
	args := append([]string{"up", "-d", "--no-recreate"}, services...)
	res, err := c.runner.Run(ctx, c.composeCmd(stack, env, args...))
	if err != nil {
		return fmt.Errorf("start %s services %v: %s: %w", stack.Project, services, strings.TrimSpace(res.Stderr), err)
	}
	return nil
}

// Exec runs a command inside a running service container without a TTY.
func (c *Client) Exec(ctx context.Context, stack config.StackConfig, service string, cmd ...string) (Result, error) {
	args := append([]string{"exec", "-T", service}, cmd...)
	return c.runner.Run(ctx, c.composeCmd(stack, nil, args...))
}

// PS lists the stack's containers with run state and health flag.
func (c *Client) PS(ctx context.Context, stack config.StackConfig) ([]ContainerState, error) {
	res, err := c.runner.Run(ctx, c.composeCmd(stack, nil, "ps", "-a", "--format", "json"))
	if err != nil {
		return nil, fmt.Errorf("list %s containers: %w", stack.Project, err)
	}
	return parseComposePS(res.Stdout)
}

// Logs returns the tail of a service's log output.
func (c *Client) Logs(ctx context.Context, stack config.StackConfig, service string) (string, error) {
	res, err := c.runner.Run(ctx, c.composeCmd(stack, nil, "logs", "--no-color", "--tail", "100", service))
	if err != nil {
		return "", fmt.Errorf("logs %s/%s: %w", stack.Project, service, err)
	}
	return res.Stdout + res.Stderr, nil
}

// Stop stops the stack's containers without removing anything.
func (c *Client) Stop(ctx context.Context, stack config.StackConfig) error {
	res, err := c.runner.Run(ctx, c.composeCmd(stack, nil, "stop"))
	if err != nil {
		if isAbsent(res.Stderr) {
			return nil
		}
		return fmt.Errorf("stop %s: %w", stack.Project, err)
	}
	return nil
}

// RemoveContainer force-removes one container by name. Absent is success.
func (c *Client) RemoveContainer(ctx context.Context, name string) error {
	res, err := c.runner.Run(ctx, Command{Name: "docker", Args: []string{"rm", "-f", name}})
	if err != nil {
		if isAbsent(res.Stderr) {
			log.Info().Str("container", name).Msg("already absent")
			return nil
		}
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}

// ListContainerNames returns the names of all containers, running or not.
func (c *Client) ListContainerNames(ctx context.Context) ([]string, error) {
	res, err := c.runner.Run(ctx, Command{Name: "docker", Args: []string{"ps", "-a", "--format", "{{.Names}}"}})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	var names []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// RemoveVolume removes one named volume. Absent is success.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	res, err := c.runner.Run(ctx, Command{Name: "docker", Args: []string{"volume", "rm", name}})
	if err != nil {
		if isAbsent(res.Stderr) {
			log.Info().Str("volume", name).Msg("already absent")
			return nil
		}
		return fmt.Errorf("remove volume %s: %w", name, err)
	}
	return nil
}

// RemoveNetwork removes one network. Absent is success.
func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	res, err := c.runner.Run(ctx, Command{Name: "docker", Args: []string{"network", "rm", name}})
	if err != nil {
		if isAbsent(res.Stderr) {
			log.Info().Str("network", name).Msg("already absent")
			return nil
		}
		return fmt.Errorf("remove network %s: %w", name, err)
	}
	return nil
}

// RemovePath deletes a bind-mounted directory on the runtime host. Routed
// through the runner so remote mode wipes the right filesystem. Absent paths
// are success (rm -rf semantics).
func (c *Client) RemovePath(ctx context.Context, path string) error {
	res, err := c.runner.Run(ctx, Command{Name: "rm", Args: []string{"-rf", path}})
	if err != nil {
		return fmt.Errorf("remove %s: %s: %w", path, strings.TrimSpace(res.Stderr), err)
	}
	return nil
}

// PruneImages removes dangling images.
func (c *Client) PruneImages(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, Command{Name: "docker", Args: []string{"image", "prune", "-f"}}); err != nil {
		return fmt.Errorf("prune images: %w", err)
	}
	return nil
}

// isAbsent recognizes the runtime's "no such resource" error texts so cleanup
// stays re-runnable.
func isAbsent(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"no such container", "no such volume", "no such network", "not found", "no such service", "has no container"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
