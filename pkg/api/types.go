package api

// v0 contains public types shared by the CLI and the run journal.

// Target selects which stacks an operation applies to.
type Target string

const (
	TargetNetBox   Target = "netbox"
	TargetNautobot Target = "nautobot"
	TargetBoth     Target = "both"
)

// RunKind identifies the orchestrator entry point that produced a run.
type RunKind string

const (
	RunUp            RunKind = "up"
	RunVerify        RunKind = "verify"
	RunClean         RunKind = "clean"
	RunFixMigrations RunKind = "fix-migrations"
	RunSuperuser     RunKind = "superuser"
)

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// CheckState is the outcome of a single verification check.
type CheckState string

const (
	CheckHealthy   CheckState = "healthy"
	CheckStarting  CheckState = "starting"
	CheckUnhealthy CheckState = "unhealthy"
	CheckDown      CheckState = "down"
)

// CheckResult is one row of the verification report.
type CheckResult struct {
	Service string     `json:"service" yaml:"service"`
	Stack   Target     `json:"stack" yaml:"stack"`
	State   CheckState `json:"state" yaml:"state"`
	Detail  string     `json:"detail,omitempty" yaml:"detail,omitempty"`
}
