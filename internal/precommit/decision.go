package precommit

// Decision is the outcome of the pre-commit gating policy.
type Decision int

const (
	// Run means the hooks should run and be repaired on failure.
	Run Decision = iota
	// SkipNoVerifyFlag means the user asked to bypass verification.
	SkipNoVerifyFlag
	// SkipNoConfig means the workspace has no hook configuration.
	SkipNoConfig
	// SkipNotInstalled means pre-commit is not on PATH.
	SkipNotInstalled
)

func (d Decision) String() string {
	switch d {
	case Run:
		return "run"
	case SkipNoVerifyFlag:
		return "skip: --no-verify set"
	case SkipNoConfig:
		return "skip: no " + ConfigFile
	case SkipNotInstalled:
		return "skip: " + Executable + " not installed"
	default:
		return "unknown"
	}
}

// Skipped reports whether the gate will not run.
func (d Decision) Skipped() bool {
	return d != Run
}

// Decide applies the gating rules in priority order: the no-verify flag,
// then a missing config, then a missing executable.
func Decide(noVerify, hasConfig, installed bool) Decision {
	switch {
	case noVerify:
		return SkipNoVerifyFlag
	case !hasConfig:
		return SkipNoConfig
	case !installed:
		return SkipNotInstalled
	default:
		return Run
	}
}

// Decide evaluates the policy against workspace.
func (g *Gate) Decide(noVerify bool, workspace string) Decision {
	if noVerify {
		return SkipNoVerifyFlag
	}
	return Decide(false, g.HasConfig(workspace), g.IsInstalled())
}
