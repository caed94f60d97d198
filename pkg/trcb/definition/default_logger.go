// Package definition holds the default concrete implementations TRCB
// components fall back to when an application doesn't supply its own —
// today, just the logger.
package definition

import (
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the Logger implementation used when an application does
// not supply its own. It implements types.Logger (enforced by a
// compile-time assertion in package trcb's config.go) by delegating to a logrus.Logger, the teacher's own go.mod dependency,
// previously indirect-only (SPEC_FULL.md §2.1).
type DefaultLogger struct {
	entry *logrus.Logger
}

// NewDefaultLogger returns a DefaultLogger writing text-formatted entries
// to stderr at Info level.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{entry: l}
}

func (l *DefaultLogger) Info(v ...interface{})                   { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{})    { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                    { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{})    { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                   { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{})   { l.entry.Errorf(format, v...) }
func (l *DefaultLogger) Debug(v ...interface{})                   { l.entry.Debug(v...) }
func (l *DefaultLogger) Debugf(format string, v ...interface{})   { l.entry.Debugf(format, v...) }
func (l *DefaultLogger) Fatal(v ...interface{})                   { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(format string, v ...interface{})   { l.entry.Fatalf(format, v...) }

// ToggleDebug enables or disables Debug/Debugf output and returns the
// resulting state, mirroring the teacher's own DefaultLogger.ToggleDebug.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	if value {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
	return value
}
