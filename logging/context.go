package logging

import (
	"context"

	"go.viam.com/utils"
)

// debugNameKey holds the name a context was put in debug mode under.
type debugNameKey struct{}

// EnableDebugMode marks ctx so that CDebug lines are written for it whatever the logger level.
// This is how one capture or decode is traced without turning on debug for the whole process.
// An empty name is replaced by a random one.
func EnableDebugMode(ctx context.Context, name string) context.Context {
	if name == "" {
		name = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugNameKey{}, name)
}

// IsDebugMode reports whether ctx was marked by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the debug name of ctx, or "" outside debug mode.
func GetName(ctx context.Context) string {
	name, _ := ctx.Value(debugNameKey{}).(string)
	return name
}
