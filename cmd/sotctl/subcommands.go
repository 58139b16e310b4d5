package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sotstack/sotctl/internal/compose"
	"github.com/sotstack/sotctl/internal/config"
	"github.com/sotstack/sotctl/internal/core"
	"github.com/sotstack/sotctl/internal/journal"
	"github.com/sotstack/sotctl/internal/remote"
	"github.com/sotstack/sotctl/pkg/api"
)

// Resolve settings, runner and compose client into an orchestrator. The
// remote runner is returned alongside so commands that need SFTP (env file
// push before a remote up) can reach it; nil in local mode.
func resolveOrchestrator(cmd *cobra.Command) (*core.Orchestrator, config.Config, *remote.Runner, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, cfg, nil, err
	}
	secrets, err := config.LoadSecretsEnv("")
	if err != nil {
		return nil, cfg, nil, err
	}
	var runner compose.Runner = compose.LocalRunner{}
	var rr *remote.Runner
	if cfg.Remote.Enabled {
		rr, err = remote.NewRunner(cfg)
		if err != nil {
			return nil, cfg, nil, err
		}
		runner = rr
	}
	client, err := compose.Preflight(cmd.Context(), runner)
	if err != nil {
		return nil, cfg, nil, err
	}
	return core.New(cfg, client, secrets), cfg, rr, nil
}

// pushEnvFiles uploads each stack's local .env to the remote host so the
// compose files interpolate against the environment the operator edited here.
// Stacks without a local .env are skipped.
func pushEnvFiles(rr *remote.Runner, cfg config.Config) error {
	for _, sc := range []config.StackConfig{cfg.NetBox, cfg.Nautobot, cfg.Nornir} {
		local := filepath.Join(sc.WorkingDir, ".env")
		if _, err := os.Stat(local); err != nil {
			continue
		}
		if err := rr.PushEnvFile(local, local); err != nil {
			return fmt.Errorf("push %s: %w", local, err)
		}
		log.Info().Str("file", local).Msg("env file pushed to remote host")
	}
	return nil
}

// Pick the stack scope from the mutually exclusive --netbox-only/--nautobot-only flags
func targetFromFlags(cmd *cobra.Command) (api.Target, error) {
	netboxOnly, _ := cmd.Flags().GetBool("netbox-only")
	nautobotOnly, _ := cmd.Flags().GetBool("nautobot-only")
	switch {
	case netboxOnly && nautobotOnly:
		return "", fmt.Errorf("--netbox-only and --nautobot-only are mutually exclusive")
	case netboxOnly:
		return api.TargetNetBox, nil
	case nautobotOnly:
		return api.TargetNautobot, nil
	default:
		return api.TargetBoth, nil
	}
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("netbox-only", false, "operate on the NetBox stack only")
	cmd.Flags().Bool("nautobot-only", false, "operate on the Nautobot stack only")
}

// Record the run in the journal. Advisory only; a journal failure never fails
// the command.
func recordRun(cfg config.Config, kind api.RunKind, target api.Target, runErr error, started time.Time) {
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.Warn().Err(err).Msg("journal unavailable")
		return
	}
	defer j.Close()
	status := api.RunSucceeded
	detail := ""
	if runErr != nil {
		status = api.RunFailed
		detail = runErr.Error()
	}
	r := journal.Run{Kind: kind, Target: target, Status: status, Detail: detail, StartedAt: started, FinishedAt: time.Now()}
	if err := j.Record(context.Background(), r); err != nil {
		log.Warn().Err(err).Msg("journal write failed")
	}
}

// Start the stacks in sequenced phases
func newUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the stacks in sequenced phases with readiness gates",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			clean, _ := cmd.Flags().GetBool("clean")
			o, cfg, rr, err := resolveOrchestrator(cmd)
			if err != nil {
				return err
			}
			started := time.Now()
			if rr != nil {
				if err := pushEnvFiles(rr, cfg); err != nil {
					recordRun(cfg, api.RunUp, target, err, started)
					return err
				}
			}
			if clean {
				if err := o.Clean(cmd.Context(), core.CleanOptions{Target: target, Yes: true}); err != nil {
					recordRun(cfg, api.RunUp, target, err, started)
					return err
				}
			}
			err = o.Up(cmd.Context(), target)
			recordRun(cfg, api.RunUp, target, err, started)
			return err
		},
	}
	cmd.Flags().Bool("clean", false, "remove existing containers before starting")
	addTargetFlags(cmd)
	return cmd
}

// Verify runtime health without mutating anything
func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report per-service health and an aggregate summary (read-only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			o, cfg, _, err := resolveOrchestrator(cmd)
			if err != nil {
				return err
			}
			started := time.Now()
			report, err := o.Verify(cmd.Context(), target)
			if err == nil && !report.AllHealthy() {
				err = fmt.Errorf("%d of %d services healthy", report.Healthy(), report.Total())
			}
			recordRun(cfg, api.RunVerify, target, err, started)
			return err
		},
	}
	addTargetFlags(cmd)
	return cmd
}

// Remove containers and, optionally, persisted state
func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Stop and remove stack resources (containers; volumes/networks with --hard; database state with --db)",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			opts := core.CleanOptions{Target: target}
			opts.Hard, _ = cmd.Flags().GetBool("hard")
			opts.DB, _ = cmd.Flags().GetBool("db")
			opts.Images, _ = cmd.Flags().GetBool("images")
			opts.Yes, _ = cmd.Flags().GetBool("yes")
			o, cfg, _, err := resolveOrchestrator(cmd)
			if err != nil {
				return err
			}
			started := time.Now()
			err = o.Clean(cmd.Context(), opts)
			recordRun(cfg, api.RunClean, target, err, started)
			return err
		},
	}
	cmd.Flags().Bool("hard", false, "also remove named volumes and networks")
	cmd.Flags().Bool("db", false, "also wipe persisted database state (irreversible)")
	cmd.Flags().Bool("images", false, "also prune dangling images")
	cmd.Flags().BoolP("yes", "y", false, "skip confirmation prompts")
	addTargetFlags(cmd)
	return cmd
}

// Repair the known fresh-install migration defect
func newFixMigrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-migrations",
		Short: "Fake-apply the broken drop-legacy-columns migration on a fresh Nautobot database",
		Long: "The shipped migration only drops columns a fresh schema never had, so first-ever\n" +
			"deployments fail with 'column does not exist'. This marks that one migration as\n" +
			"applied without executing it, then applies the rest normally. Refuses to run when\n" +
			"the legacy columns actually exist (a genuine upgrade path). Never run automatically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			o, cfg, _, err := resolveOrchestrator(cmd)
			if err != nil {
				return err
			}
			started := time.Now()
			err = o.FixMigrations(cmd.Context(), yes)
			recordRun(cfg, api.RunFixMigrations, api.TargetNautobot, err, started)
			return err
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	return cmd
}

// Provision superusers idempotently
func newSuperuserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "superuser",
		Short: "Provision web-app superusers from *_SUPERUSER_* environment (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			o, cfg, _, err := resolveOrchestrator(cmd)
			if err != nil {
				return err
			}
			started := time.Now()
			err = o.EnsureSuperusers(cmd.Context(), target)
			recordRun(cfg, api.RunSuperuser, target, err, started)
			return err
		},
	}
	addTargetFlags(cmd)
	return cmd
}

// Show recent orchestration runs
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent orchestration runs from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()
			runs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s\t%-14s %-9s %-9s %s\n",
					r.StartedAt.Local().Format(time.RFC3339), r.Kind, r.Target, r.Status, r.Detail)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum runs to list")
	return cmd
}

// Shell completion
func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion script",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}
}
