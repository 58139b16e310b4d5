package stack

import (
	"testing"

	"github.com/sotstack/sotctl/internal/config"
	"github.com/sotstack/sotctl/pkg/api"
)

func TestPhasesOrdering(t *testing.T) {
	stacks := Select(config.Defaults(), api.TargetBoth)
	plan := Phases(stacks)
	if len(plan) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(plan))
	}
	for i, units := range plan {
		for _, u := range units {
			if u.Service.Phase != i+1 {
				t.Errorf("service %s in phase slot %d but tagged phase %d", u.Service.Name, i+1, u.Service.Phase)
			}
		}
	}
	// Phase 1 is datastores and caches only.
	for _, u := range plan[0] {
		if u.Service.Role != RoleDatastore && u.Service.Role != RoleCache {
			t.Errorf("phase 1 contains %s role %s", u.Service.Name, u.Service.Role)
		}
	}
	// Phase 2 is the migrating web services only.
	if len(plan[1]) != 2 {
		t.Fatalf("expected 2 phase-2 services, got %d", len(plan[1]))
	}
	for _, u := range plan[1] {
		if u.Service.Role != RoleWeb {
			t.Errorf("phase 2 contains %s role %s", u.Service.Name, u.Service.Role)
		}
	}
}

func TestWorkersCarrySkipMigrationFlag(t *testing.T) {
	for _, s := range Select(config.Defaults(), api.TargetBoth) {
		for _, svc := range s.Services {
			if svc.Role != RoleWorker && svc.Role != RoleScheduler {
				continue
			}
			if len(svc.Env) == 0 {
				t.Errorf("%s/%s has no skip-migrations env", s.Config.Project, svc.Name)
			}
			if svc.Phase != 3 {
				t.Errorf("%s/%s must start in phase 3, got %d", s.Config.Project, svc.Name, svc.Phase)
			}
		}
	}
}

func TestSelectSingleTarget(t *testing.T) {
	stacks := Select(config.Defaults(), api.TargetNetBox)
	if len(stacks) != 1 || stacks[0].Target != api.TargetNetBox {
		t.Fatalf("unexpected selection: %+v", stacks)
	}
	stacks = Select(config.Defaults(), api.TargetBoth)
	if len(stacks) != 3 {
		t.Fatalf("expected 3 stacks for full deployment, got %d", len(stacks))
	}
}

func TestStorageAsymmetry(t *testing.T) {
	cfg := config.Defaults()
	nb := NetBox(cfg.NetBox)
	na := Nautobot(cfg.Nautobot)
	if len(nb.Config.BindDirs) == 0 || len(nb.Config.Volumes) != 0 {
		t.Errorf("netbox must persist to bind directories: %+v", nb.Config)
	}
	if len(na.Config.Volumes) == 0 || len(na.Config.BindDirs) != 0 {
		t.Errorf("nautobot must persist to named volumes: %+v", na.Config)
	}
}
