package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sotstack/sotctl/internal/config"
	"github.com/sotstack/sotctl/internal/stack"
	"github.com/sotstack/sotctl/pkg/api"
)

// superuserScript runs under the app's Django shell. get_or_create keeps the
// operation idempotent: an existing user is never touched.
const superuserScript = `from django.contrib.auth import get_user_model; ` +
	`User = get_user_model(); ` +
	`u, created = User.objects.get_or_create(username=%q, defaults={"email": %q, "is_superuser": True, "is_staff": True}); ` +
	`created and (u.set_password(%q), u.save()); ` +
	`print("created" if created else "exists")`

// EnsureSuperusers provisions the web apps' superusers from the configured
// environment names. Missing credentials skip the stack with a note; an
// already-existing user is an informational no-op.
func (o *Orchestrator) EnsureSuperusers(ctx context.Context, target api.Target) error {
	for _, s := range stack.Select(o.cfg, target) {
		web, ok := s.WebService()
		if !ok || s.Config.Superuser.NameEnv == "" {
			continue
		}
		if err := o.ensureSuperuser(ctx, s.Config, web.Name); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) ensureSuperuser(ctx context.Context, sc config.StackConfig, service string) error {
	name := config.ResolveSecret(o.secrets, sc.Superuser.NameEnv)
	email := config.ResolveSecret(o.secrets, sc.Superuser.EmailEnv)
	password := config.ResolveSecret(o.secrets, sc.Superuser.PasswordEnv)
	if name == "" || password == "" {
		fmt.Fprintf(o.out, "Skipping %s superuser: %s/%s not set\n",
			sc.Project, sc.Superuser.NameEnv, sc.Superuser.PasswordEnv)
		return nil
	}

	script := fmt.Sprintf(superuserScript, name, email, password)
	shell := []string{"python", "manage.py", "shell", "-c", script}
	if sc.Project == "nautobot" {
		shell = []string{"nautobot-server", "shell", "-c", script}
	}
	res, err := o.client.Exec(ctx, sc, service, shell...)
	if err != nil {
		return fmt.Errorf("provision %s superuser: %s: %w", sc.Project, strings.TrimSpace(res.Stderr), err)
	}
	switch {
	case strings.Contains(res.Stdout, "exists"):
		log.Info().Str("stack", sc.Project).Str("user", name).Msg("superuser already exists")
		fmt.Fprintf(o.out, "%s superuser %q already exists\n", sc.Project, name)
	default:
		fmt.Fprintf(o.out, "%s superuser %q created\n", sc.Project, name)
	}
	return nil
}
