package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sotstack/sotctl/internal/stack"
	"github.com/sotstack/sotctl/pkg/api"
)

// CleanOptions scopes the cleanup executor.
type CleanOptions struct {
	Target api.Target
	// Hard additionally removes named volumes and networks.
	Hard bool
	// DB additionally wipes persisted database state: bind directories for
	// NetBox, named volumes for Nautobot. The one irreversible action.
	DB bool
	// Images prunes dangling images. Orthogonal to the other scopes.
	Images bool
	// Yes bypasses confirmation prompts.
	Yes bool
}

// Clean stops and removes the matching containers, then optionally volumes,
// networks and persisted database state. Every removal tolerates "already
// absent", so a second identical run is a no-op reported as success. A
// declined confirmation skips only that action.
func (o *Orchestrator) Clean(ctx context.Context, opts CleanOptions) error {
	stacks := stack.Select(o.cfg, opts.Target)

	allNames, err := o.client.ListContainerNames(ctx)
	if err != nil {
		return err
	}

	for _, s := range stacks {
		fmt.Fprintf(o.out, "Cleaning %s containers\n", s.Config.Project)
		if err := o.client.Stop(ctx, s.Config); err != nil {
			log.Warn().Err(err).Str("stack", s.Config.Project).Msg("stop failed, removing anyway")
		}
		owned := map[string]bool{}
		for _, name := range s.ContainerNames() {
			owned[name] = true
			if err := o.client.RemoveContainer(ctx, name); err != nil {
				return err
			}
		}
		// Stale containers from prior runs may carry legacy names.
		for _, name := range allNames {
			if owned[name] {
				continue
			}
			for _, prefix := range s.LegacyPrefixes {
				if strings.HasPrefix(name, prefix) {
					if err := o.client.RemoveContainer(ctx, name); err != nil {
						return err
					}
					break
				}
			}
		}

		if opts.Hard {
			if err := o.cleanHard(ctx, s, opts.Yes); err != nil {
				return err
			}
		}
		if opts.DB {
			if err := o.cleanDB(ctx, s, opts.Yes); err != nil {
				return err
			}
		}
	}

	if opts.Images {
		fmt.Fprintln(o.out, "Pruning dangling images")
		if err := o.client.PruneImages(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(o.out, "Cleanup complete.")
	return nil
}

func (o *Orchestrator) cleanHard(ctx context.Context, s *stack.Stack, yes bool) error {
	if len(s.Config.Volumes) > 0 {
		action := fmt.Sprintf("This removes the %s named volumes (%s), discarding their data",
			s.Config.Project, strings.Join(s.Config.Volumes, ", "))
		if o.confirm(action, yes) {
			for _, vol := range s.Config.Volumes {
				if err := o.client.RemoveVolume(ctx, vol); err != nil {
					return err
				}
			}
		} else {
			fmt.Fprintf(o.out, "Skipping %s volume removal\n", s.Config.Project)
		}
	}
	for _, net := range s.Networks {
		if err := o.client.RemoveNetwork(ctx, net); err != nil {
			return err
		}
	}
	return nil
}

// cleanDB wipes the stack's persisted database state with the removal
// primitive that matches where the stack keeps it.
func (o *Orchestrator) cleanDB(ctx context.Context, s *stack.Stack, yes bool) error {
	if len(s.Config.BindDirs) > 0 {
		action := fmt.Sprintf("This permanently deletes the %s database directories (%s)",
			s.Config.Project, strings.Join(s.Config.BindDirs, ", "))
		if !o.confirm(action, yes) {
			fmt.Fprintf(o.out, "Skipping %s database wipe\n", s.Config.Project)
			return nil
		}
		for _, dir := range s.Config.BindDirs {
			if err := o.client.RemovePath(ctx, dir); err != nil {
				return err
			}
		}
		return nil
	}
	if len(s.Config.Volumes) > 0 {
		action := fmt.Sprintf("This permanently deletes the %s database volumes (%s)",
			s.Config.Project, strings.Join(s.Config.Volumes, ", "))
		if !o.confirm(action, yes) {
			fmt.Fprintf(o.out, "Skipping %s database wipe\n", s.Config.Project)
			return nil
		}
		for _, vol := range s.Config.Volumes {
			if err := o.client.RemoveVolume(ctx, vol); err != nil {
				return err
			}
		}
	}
	return nil
}
