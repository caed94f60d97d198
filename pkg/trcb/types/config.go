package types

import "time"

// Default values for Configuration, per spec.md §6.
const (
	DefaultCheckResendIntervalMS = 5000
	DefaultResendAfterMS         = 10000
)

// Configuration holds the recognized options of spec.md §6. There is no
// persisted state and no environment variable is part of the contract.
type Configuration struct {
	// DeliverLocally, if true, makes Broadcast invoke the local delivery
	// handler synchronously before returning. Default false.
	DeliverLocally bool

	// CheckResendIntervalMS is the retransmit timer period, in
	// milliseconds. Default 5000.
	CheckResendIntervalMS int64

	// ResendAfterMS is the age threshold, in milliseconds, past which an
	// outstanding retransmit entry is resent. Default 10000.
	ResendAfterMS int64

	// Logger receives all ambient log output. DefaultConfiguration sets it
	// to definition.NewDefaultLogger(), and NewNode does the same when it
	// is nil.
	Logger Logger
}

// CheckResendInterval returns CheckResendIntervalMS as a time.Duration.
func (c Configuration) CheckResendInterval() time.Duration {
	return time.Duration(c.CheckResendIntervalMS) * time.Millisecond
}

// ResendAfter returns ResendAfterMS as a time.Duration.
func (c Configuration) ResendAfter() time.Duration {
	return time.Duration(c.ResendAfterMS) * time.Millisecond
}
