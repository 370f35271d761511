package shift

import (
	"github.com/denismitr/shift/internal/logger"
)

// LoggerOptions selects what the migrator prints besides step results
type LoggerOptions struct {
	Colors      bool
	Transitions bool
	Debug       bool
}

// UseLogger prints step results and errors to the printer
func UseLogger(p logger.Printer, opts LoggerOptions) OptionFunc {
	return func(m *Migrator) error {
		if opts.Colors {
			m.lg = logger.NewColorLogger(p, opts.Transitions, opts.Debug)
		} else {
			m.lg = logger.NewBWLogger(p, opts.Transitions, opts.Debug)
		}
		return nil
	}
}
