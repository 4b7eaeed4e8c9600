package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender writes through tb.Log so every line lands under the test that produced it, even
// with t.Parallel.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs to tb in the console line format.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write logs the entry. The helper mark keeps the file/line tb reports pointing at the log call.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := entryLine(entry, fields)
	tapp.tb.Log(line)
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
