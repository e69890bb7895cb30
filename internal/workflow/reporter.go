package workflow

// Reporter receives user-facing progress for a run. Agent output is not
// routed here; collaborators that drive the agent take their own event
// callback.
type Reporter interface {
	Step(msg string)
	Info(msg string)
	Warn(msg string)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Step(string) {}
func (NopReporter) Info(string) {}
func (NopReporter) Warn(string) {}
