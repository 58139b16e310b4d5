package compose

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContainerState is one row of `compose ps --format json`.
type ContainerState struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`  // running, exited, restarting, ...
	Health  string `json:"Health"` // healthy, unhealthy, starting, or empty
}

// Running reports whether the container is in the running state.
func (s ContainerState) Running() bool { return s.State == "running" }

// Healthy reports the health flag strictly: only "healthy" counts. Containers
// without a healthcheck carry an empty flag and are not healthy by this test.
func (s ContainerState) Healthy() bool { return s.Health == "healthy" }

// parseComposePS decodes compose ps JSON output. Newer compose emits NDJSON
// (one object per line); older releases emit a single array. Both are
// accepted.
func parseComposePS(out string) ([]ContainerState, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	if strings.HasPrefix(out, "[") {
		var states []ContainerState
		if err := json.Unmarshal([]byte(out), &states); err != nil {
			return nil, fmt.Errorf("parse compose ps output: %w", err)
		}
		return states, nil
	}
	var states []ContainerState
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var st ContainerState
		if err := json.Unmarshal([]byte(line), &st); err != nil {
			return nil, fmt.Errorf("parse compose ps line %q: %w", line, err)
		}
		states = append(states, st)
	}
	return states, nil
}

// FindService returns the state row for a compose service name.
func FindService(states []ContainerState, service string) (ContainerState, bool) {
	for _, st := range states {
		if st.Service == service {
			return st, true
		}
	}
	return ContainerState{}, false
}
