package stack

import (
	"github.com/sotstack/sotctl/internal/config"
	"github.com/sotstack/sotctl/pkg/api"
)

// Role classifies a managed compose service.
type Role string

const (
	RoleDatastore Role = "datastore"
	RoleCache     Role = "cache"
	RoleWeb       Role = "web"
	RoleWorker    Role = "worker"
	RoleScheduler Role = "scheduler"
)

// ReadyCheck selects how a service's phase gate is probed.
type ReadyCheck int

const (
	// ReadyPostgres is a database-native accept probe (pg_isready inside the
	// container), not mere process-up.
	ReadyPostgres ReadyCheck = iota
	// ReadyRedis is a redis-cli PING inside the container.
	ReadyRedis
	// ReadyHealthyHTTP requires the container health flag to read "healthy"
	// and the HTTP path to answer.
	ReadyHealthyHTTP
	// ReadyHTTP requires only HTTP reachability.
	ReadyHTTP
	// ReadyRunning requires only the running state. Workers expose no health
	// endpoint.
	ReadyRunning
)

// Service is one compose-managed unit.
type Service struct {
	Name      string // compose service name
	Container string // container_name, used for exact-name cleanup
	Role      Role
	Phase     int // the phase that starts this service
	Ready     ReadyCheck
	// Env is injected at start. Workers carry their skip-migrations flag here
	// so they never race the web service's migration run.
	Env map[string]string
}

// Stack is a compose project plus the services the orchestrator sequences.
type Stack struct {
	Target   api.Target
	Config   config.StackConfig
	Services []Service
	// Networks removed on --hard cleanup.
	Networks []string
	// LegacyPrefixes match stale container names from prior naming schemes.
	LegacyPrefixes []string
}

// Unit pairs a service with its owning stack for phase plans.
type Unit struct {
	Stack   *Stack
	Service Service
}

// NetBox persists postgres and redis state to bind-mounted host directories.
func NetBox(cfg config.StackConfig) *Stack {
	return &Stack{
		Target: api.TargetNetBox,
		Config: cfg,
		Services: []Service{
			{Name: "postgres", Container: "netbox-postgres", Role: RoleDatastore, Phase: 1, Ready: ReadyPostgres},
			{Name: "redis", Container: "netbox-redis", Role: RoleCache, Phase: 1, Ready: ReadyRedis},
			{Name: "netbox", Container: "netbox", Role: RoleWeb, Phase: 2, Ready: ReadyHealthyHTTP},
			{Name: "netbox-worker", Container: "netbox-worker", Role: RoleWorker, Phase: 3, Ready: ReadyRunning,
				Env: map[string]string{"SKIP_STARTUP_SCRIPTS": "true"}},
			{Name: "netbox-housekeeping", Container: "netbox-housekeeping", Role: RoleScheduler, Phase: 3, Ready: ReadyRunning,
				Env: map[string]string{"SKIP_STARTUP_SCRIPTS": "true"}},
		},
		Networks:       []string{"netbox_default"},
		LegacyPrefixes: []string{"netbox_", "netbox-docker"},
	}
}

// Nautobot persists to runtime-managed named volumes, not bind directories.
func Nautobot(cfg config.StackConfig) *Stack {
	return &Stack{
		Target: api.TargetNautobot,
		Config: cfg,
		Services: []Service{
			{Name: "postgres", Container: "nautobot-postgres", Role: RoleDatastore, Phase: 1, Ready: ReadyPostgres},
			{Name: "redis", Container: "nautobot-redis", Role: RoleCache, Phase: 1, Ready: ReadyRedis},
			{Name: "nautobot", Container: "nautobot", Role: RoleWeb, Phase: 2, Ready: ReadyHealthyHTTP},
			{Name: "celery-worker", Container: "nautobot-celery-worker", Role: RoleWorker, Phase: 3, Ready: ReadyRunning,
				Env: map[string]string{"NAUTOBOT_SKIP_MIGRATIONS": "true"}},
			{Name: "celery-beat", Container: "nautobot-celery-beat", Role: RoleScheduler, Phase: 3, Ready: ReadyRunning,
				Env: map[string]string{"NAUTOBOT_SKIP_MIGRATIONS": "true"}},
		},
		Networks:       []string{"nautobot_default"},
		LegacyPrefixes: []string{"nautobot_"},
	}
}

// Nornir is the auxiliary automation service. It consumes the source-of-truth
// APIs, so it rides in the last phase behind both web services.
func Nornir(cfg config.StackConfig) *Stack {
	return &Stack{
		Target: api.TargetBoth,
		Config: cfg,
		Services: []Service{
			{Name: "nornir-automation", Container: "nornir-automation", Role: RoleWeb, Phase: 3, Ready: ReadyHTTP},
		},
		Networks:       []string{"nornir_default"},
		LegacyPrefixes: []string{"nornir_"},
	}
}

// Select builds the managed stack set for a target. Nornir only runs alongside
// the full deployment.
func Select(cfg config.Config, target api.Target) []*Stack {
	switch target {
	case api.TargetNetBox:
		return []*Stack{NetBox(cfg.NetBox)}
	case api.TargetNautobot:
		return []*Stack{Nautobot(cfg.Nautobot)}
	default:
		return []*Stack{NetBox(cfg.NetBox), Nautobot(cfg.Nautobot), Nornir(cfg.Nornir)}
	}
}

// Phases groups the stacks' services into the ordered startup plan. Phase
// i+1 units must never start before every phase-i gate resolves ready.
func Phases(stacks []*Stack) [][]Unit {
	const phaseCount = 3
	plan := make([][]Unit, phaseCount)
	for _, s := range stacks {
		for _, svc := range s.Services {
			idx := svc.Phase - 1
			if idx < 0 || idx >= phaseCount {
				continue
			}
			plan[idx] = append(plan[idx], Unit{Stack: s, Service: svc})
		}
	}
	return plan
}

// ContainerNames returns the exact container names a stack owns.
func (s *Stack) ContainerNames() []string {
	names := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		names = append(names, svc.Container)
	}
	return names
}

// WebService returns the stack's migrating web service, if any.
func (s *Stack) WebService() (Service, bool) {
	for _, svc := range s.Services {
		if svc.Role == RoleWeb {
			return svc, true
		}
	}
	return Service{}, false
}
