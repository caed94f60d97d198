package types

// Logger is the narrow logging surface every TRCB component depends on.
// Shaped after the teacher's own types.Logger: callers never see the
// concrete backend, only this interface, so swapping definition.DefaultLogger
// for an application's own logger is a one-line change at construction time.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	// ToggleDebug enables or disables Debug/Debugf output and returns the
	// resulting state.
	ToggleDebug(value bool) bool
}
