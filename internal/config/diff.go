package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked — provider and
// catalog backend selection require a process restart and are not diffed.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	TransitionChanged bool
	NewTransition     TransitionConfig

	PlannerBudgetsChanged bool
	NewReasoningBudgets   ReasoningBudgets

	CacheMaxBytesChanged bool
	NewCacheMaxBytes     int64
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Transition != new.Transition {
		d.TransitionChanged = true
		d.NewTransition = new.Transition
	}

	if old.Planner.ReasoningBudgets != new.Planner.ReasoningBudgets {
		d.PlannerBudgetsChanged = true
		d.NewReasoningBudgets = new.Planner.ReasoningBudgets
	}

	if old.Cache.MaxBytes != new.Cache.MaxBytes {
		d.CacheMaxBytesChanged = true
		d.NewCacheMaxBytes = new.Cache.MaxBytes
	}

	return d
}
