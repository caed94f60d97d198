package trcb

import (
	"github.com/jabolina/trcb/pkg/trcb/definition"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

// Compile-time assertion that definition.DefaultLogger satisfies
// types.Logger, referenced from definition/default_logger.go's doc comment.
var _ types.Logger = (*definition.DefaultLogger)(nil)

// DefaultConfiguration returns the spec.md §6 defaults: delivery not
// invoked locally, a 5s resend-check period and a 10s resend-after
// threshold, logging through definition.NewDefaultLogger. Mirrors the
// teacher's own mcast.DefaultConfiguration(name) constructor shape.
func DefaultConfiguration() types.Configuration {
	return types.Configuration{
		DeliverLocally:        false,
		CheckResendIntervalMS: types.DefaultCheckResendIntervalMS,
		ResendAfterMS:         types.DefaultResendAfterMS,
		Logger:                definition.NewDefaultLogger(),
	}
}
