// Package remote runs the same runtime commands against a remote Docker host
// over SSH. Host keys are verified strictly against a known_hosts file.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	xssh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sotstack/sotctl/internal/compose"
	"github.com/sotstack/sotctl/internal/config"
)

// Runner implements compose.Runner over SSH.
type Runner struct {
	addr       string
	user       string
	signer     xssh.Signer
	hostKeys   xssh.HostKeyCallback
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	baseDir    string
}

// NewRunner builds an SSH runner from the remote section of the settings.
func NewRunner(cfg config.Config) (*Runner, error) {
	r := cfg.Remote
	if r.Host == "" || r.User == "" {
		return nil, errors.New("remote runner requires host and user")
	}
	key, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := xssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	cb, err := knownHostsCallback(r.KnownHosts)
	if err != nil {
		return nil, err
	}
	port := r.Port
	if port == 0 {
		port = 22
	}
	return &Runner{
		addr:     fmt.Sprintf("%s:%d", r.Host, port),
		user:     r.User,
		signer:   signer,
		hostKeys: cb,
		timeout:  15 * time.Second,
		retries:  2,
		backoff:  500 * time.Millisecond,
		baseDir:  r.EnvDir,
	}, nil
}

func knownHostsCallback(path string) (xssh.HostKeyCallback, error) {
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", path, err)
	}
	return cb, nil
}

func (r *Runner) clientConfig() *xssh.ClientConfig {
	return &xssh.ClientConfig{
		User:            r.user,
		Auth:            []xssh.AuthMethod{xssh.PublicKeys(r.signer)},
		HostKeyCallback: r.hostKeys,
		Timeout:         r.timeout,
	}
}

// Run executes one command on the remote host with retries and linear
// backoff, mirroring the local runner's captured-output contract.
func (r *Runner) Run(ctx context.Context, cmd compose.Command) (compose.Result, error) {
	line := r.shellLine(cmd)
	var lastErr error
	var lastRes compose.Result
	for attempt := 0; attempt <= r.retries; attempt++ {
		select {
		case <-ctx.Done():
			return lastRes, ctx.Err()
		default:
		}
		res, err := r.runOnce(line)
		if err == nil {
			return res, nil
		}
		lastRes, lastErr = res, err
		// Command-level failures carry an exit code and are not transient.
		var exitErr *xssh.ExitError
		if errors.As(err, &exitErr) {
			return res, err
		}
		if attempt < r.retries {
			select {
			case <-ctx.Done():
				return lastRes, ctx.Err()
			case <-time.After(r.backoff * time.Duration(attempt+1)):
			}
		}
	}
	return lastRes, lastErr
}

func (r *Runner) runOnce(line string) (compose.Result, error) {
	cli, err := xssh.Dial("tcp", r.addr, r.clientConfig())
	if err != nil {
		return compose.Result{ExitCode: -1}, fmt.Errorf("ssh dial %s: %w", r.addr, err)
	}
	defer cli.Close()
	session, err := cli.NewSession()
	if err != nil {
		return compose.Result{ExitCode: -1}, fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	err = session.Run(line)
	res := compose.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *xssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
		} else {
			res.ExitCode = -1
		}
		return res, fmt.Errorf("remote %s: %w", line, err)
	}
	return res, nil
}

// shellLine renders a Command as a single remote shell invocation: optional
// cd into the working directory, env assignments, then the command.
func (r *Runner) shellLine(cmd compose.Command) string {
	var parts []string
	dir := cmd.Dir
	if dir != "" && r.baseDir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(r.baseDir, dir)
	}
	if dir != "" {
		parts = append(parts, "cd "+quote(dir), "&&")
	}
	keys := make([]string, 0, len(cmd.Env))
	for k := range cmd.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quote(cmd.Env[k]))
	}
	parts = append(parts, cmd.Name)
	for _, a := range cmd.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

// quote single-quotes a shell word when it needs it.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$&|;<>(){}*?#~`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
