package compose

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
)

// Command is one container-runtime invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
}

func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Result carries the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes runtime commands. The local runner shells out on this host;
// the remote runner sends the same commands over SSH. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LocalRunner executes commands on the local host.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	opts := []executor.Option{executor.SilentMode()}
	if cmd.Dir != "" {
		opts = append(opts, executor.WithWorkingDir(cmd.Dir))
	}
	if len(cmd.Env) > 0 {
		opts = append(opts, executor.WithEnv(cmd.Env))
	}
	res, err := executor.New(cmd.Name, cmd.Args...).Execute(ctx, opts...)
	if res == nil {
		return Result{ExitCode: -1}, fmt.Errorf("exec %s: %w", cmd.Name, err)
	}
	out := Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}
	if err != nil {
		return out, fmt.Errorf("exec %s: %w", cmd.Name, err)
	}
	return out, nil
}
