package notify

import (
	"log/slog"

	"github.com/roach88/stepwise/internal/step"
)

// LogListener emits lifecycle events as structured log records. Purely
// observational: it never reports failure and never influences dispatch.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener creates a listener logging through the given logger.
// A nil logger falls back to slog.Default().
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{logger: logger}
}

// StepStarted implements Listener.
func (l *LogListener) StepStarted(desc step.Description) {
	l.logger.Info("step started", "owner", desc.Owner, "step", desc.Name)
}

// StepFinished implements Listener.
func (l *LogListener) StepFinished(desc step.Description) {
	l.logger.Info("step finished", "owner", desc.Owner, "step", desc.Name)
}

// StepIgnored implements Listener.
func (l *LogListener) StepIgnored(desc step.Description) {
	l.logger.Info("step ignored", "owner", desc.Owner, "step", desc.Name)
}

// StepFailed implements Listener.
func (l *LogListener) StepFailed(failure step.Failure) {
	l.logger.Error("step failed",
		"owner", failure.Description.Owner,
		"step", failure.Description.Name,
		"error", failure.Cause,
	)
}

// StepGroupStarted implements Listener.
func (l *LogListener) StepGroupStarted(desc step.Description) {
	l.logger.Info("step group started", "owner", desc.Owner, "group", desc.Name)
}

// StepGroupFinished implements Listener.
func (l *LogListener) StepGroupFinished() {
	l.logger.Info("step group finished")
}

// TestFinished implements Listener.
func (l *LogListener) TestFinished(tally step.Tally) {
	l.logger.Info("test finished",
		"executed", tally.Executed,
		"ignored", tally.Ignored,
		"failures", len(tally.Failures),
	)
}

// Failed implements Listener. Logging never drives skip decisions.
func (l *LogListener) Failed() bool { return false }
