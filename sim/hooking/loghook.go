package hooking

import (
	"github.com/sirupsen/logrus"
)

// A LogHook writes one log entry for every hook invocation it receives.
type LogHook struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

// NewLogHook creates a hook that logs at the given level.
func NewLogHook(logger logrus.FieldLogger, level logrus.Level) *LogHook {
	return &LogHook{
		logger: logger,
		level:  level,
	}
}

// Func logs the hook position, the item, and the detail if there is one.
func (h *LogHook) Func(ctx HookCtx) {
	fields := logrus.Fields{"item": ctx.Item}
	if ctx.Detail != nil {
		fields["detail"] = ctx.Detail
	}

	name := "unknown"
	if ctx.Pos != nil {
		name = ctx.Pos.Name
	}

	h.logger.WithFields(fields).Log(h.level, name)
}
