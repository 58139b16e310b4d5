package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sotstack/sotctl/internal/compose"
)

// The Nautobot fresh-install defect: this migration only drops columns that a
// fresh schema never had, so it fails with "column does not exist" on first
// deployments while remaining a correct upgrade step for old databases.
const (
	migrationApp    = "dcim"
	brokenMigration = "0055_remove_legacy_device_fields"
	legacyTable     = "dcim_device"
)

var legacyColumns = []string{"legacy_face", "legacy_position"}

// FixMigrations is the manual fake-apply repair. It is never called from Up:
// fake-applying against a database that genuinely still has the legacy
// columns would corrupt schema tracking silently, so the legacy-column check
// here refuses that case outright.
func (o *Orchestrator) FixMigrations(ctx context.Context, yes bool) error {
	sc := o.cfg.Nautobot

	// Precondition: db and web containers must be up.
	states, err := o.client.PS(ctx, sc)
	if err != nil {
		return fmt.Errorf("fix-migrations: %w", err)
	}
	for _, svc := range []string{"postgres", "nautobot"} {
		st, ok := compose.FindService(states, svc)
		if !ok || !st.Running() {
			return fmt.Errorf("fix-migrations: %s/%s is not running; start it first with 'sotctl up --nautobot-only'", sc.Project, svc)
		}
	}

	applied, err := o.migrationApplied(ctx)
	if err != nil {
		return err
	}
	if applied {
		fmt.Fprintf(o.out, "Migration %s.%s already applied; nothing to do.\n", migrationApp, brokenMigration)
		return nil
	}

	// Fake-apply is only valid when the end state it would produce (columns
	// absent) already holds.
	present, err := o.legacyColumnsPresent(ctx)
	if err != nil {
		return err
	}
	if present {
		return fmt.Errorf("fix-migrations: legacy columns still exist on %s; this is a genuine upgrade path, "+
			"run the migration normally instead of fake-applying it", legacyTable)
	}

	if !o.confirm(fmt.Sprintf("This marks %s.%s as applied without executing it", migrationApp, brokenMigration), yes) {
		fmt.Fprintln(o.out, "Aborted.")
		return nil
	}

	fmt.Fprintf(o.out, "Fake-applying %s.%s\n", migrationApp, brokenMigration)
	if res, err := o.client.Exec(ctx, sc, "nautobot",
		"nautobot-server", "migrate", migrationApp, brokenMigration, "--fake"); err != nil {
		return fmt.Errorf("fake-apply: %s: %w", strings.TrimSpace(res.Stderr), err)
	}

	fmt.Fprintln(o.out, "Applying remaining migrations")
	if res, err := o.client.Exec(ctx, sc, "nautobot", "nautobot-server", "migrate"); err != nil {
		return fmt.Errorf("apply remaining migrations: %s: %w", strings.TrimSpace(res.Stderr), err)
	}

	// Re-query to confirm the repair took.
	applied, err = o.migrationApplied(ctx)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("fix-migrations: %s.%s still unapplied after repair", migrationApp, brokenMigration)
	}
	fmt.Fprintln(o.out, "Migration state repaired.")
	return nil
}

// migrationApplied queries Nautobot's migration tracking state for the broken
// migration.
func (o *Orchestrator) migrationApplied(ctx context.Context) (bool, error) {
	res, err := o.client.Exec(ctx, o.cfg.Nautobot, "nautobot",
		"nautobot-server", "showmigrations", migrationApp)
	if err != nil {
		return false, fmt.Errorf("query migration state: %w", err)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if !strings.Contains(line, brokenMigration) {
			continue
		}
		return strings.Contains(line, "[X]"), nil
	}
	return false, fmt.Errorf("migration %s.%s not found in migration plan", migrationApp, brokenMigration)
}

// legacyColumnsPresent checks the fake-apply safety precondition directly in
// the database rather than trusting the operator's judgment.
func (o *Orchestrator) legacyColumnsPresent(ctx context.Context) (bool, error) {
	sc := o.cfg.Nautobot
	query := fmt.Sprintf(
		"SELECT count(*) FROM information_schema.columns WHERE table_name = '%s' AND column_name IN ('%s')",
		legacyTable, strings.Join(legacyColumns, "', '"))
	res, err := o.client.Exec(ctx, sc, "postgres",
		"psql", "-U", sc.Database.User, "-d", sc.Database.Name, "-tAc", query)
	if err != nil {
		return false, fmt.Errorf("check legacy columns: %w", err)
	}
	count := strings.TrimSpace(res.Stdout)
	log.Debug().Str("count", count).Msg("legacy column check")
	return count != "" && count != "0", nil
}
