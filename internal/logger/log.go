package logger

import (
	"fmt"

	"github.com/denismitr/shift/database"
	"github.com/logrusorgru/aurora/v3"
)

type Printer interface {
	Output(calldepth int, s string) error
}

type Logger interface {
	Successf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Error(err error)
	Transition(direction string, from, to database.Version)
}

type paint func(arg interface{}) aurora.Value

type palette struct {
	success    paint
	debug      paint
	error      paint
	transition paint
}

var colors = &palette{
	success: aurora.Green,
	debug:   aurora.Yellow,
	error:   aurora.Red,
	transition: func(arg interface{}) aurora.Value {
		return aurora.Gray(15, arg)
	},
}

// PrinterLogger writes every message as a single line to a printer,
// painted when it has a palette
type PrinterLogger struct {
	printer     Printer
	palette     *palette
	debug       bool
	transitions bool
}

var _ Logger = (*PrinterLogger)(nil)

func NewColorLogger(p Printer, transitions, debug bool) *PrinterLogger {
	return &PrinterLogger{printer: p, palette: colors, transitions: transitions, debug: debug}
}

func NewBWLogger(p Printer, transitions, debug bool) *PrinterLogger {
	return &PrinterLogger{printer: p, transitions: transitions, debug: debug}
}

func (l *PrinterLogger) Successf(format string, args ...interface{}) {
	l.print(l.pick(func(p *palette) paint { return p.success }), "Shift: "+fmt.Sprintf(format, args...))
}

func (l *PrinterLogger) Debugf(format string, args ...interface{}) {
	if l.debug {
		l.print(l.pick(func(p *palette) paint { return p.debug }), "Shift debug: "+fmt.Sprintf(format, args...))
	}
}

func (l *PrinterLogger) Error(err error) {
	l.print(l.pick(func(p *palette) paint { return p.error }), "Shift error: "+err.Error())
}

// Transition reports the persisted version moving from one value to another
func (l *PrinterLogger) Transition(direction string, from, to database.Version) {
	if l.transitions {
		msg := fmt.Sprintf("Shift %s: version [%s] -> [%s]", direction, from, to)
		l.print(l.pick(func(p *palette) paint { return p.transition }), msg)
	}
}

func (l *PrinterLogger) pick(f func(p *palette) paint) paint {
	if l.palette == nil {
		return nil
	}
	return f(l.palette)
}

func (l *PrinterLogger) print(p paint, msg string) {
	if p != nil {
		msg = p(msg).String()
	}
	_ = l.printer.Output(3, msg)
}
