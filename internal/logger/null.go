package logger

import "github.com/denismitr/shift/database"

type NullLogger struct{}

var _ Logger = (*NullLogger)(nil)

func (NullLogger) Successf(_ string, _ ...interface{}) {}

func (NullLogger) Debugf(_ string, _ ...interface{}) {}

func (NullLogger) Transition(_ string, _, _ database.Version) {}

func (NullLogger) Error(_ error) {}
