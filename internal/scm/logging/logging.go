// Package logging wraps github.com/golang/glog with a context-aware
// invocation id, so every log line emitted during one reconciliation pass
// can be grepped out of many concurrent invocations. See
// weed/glog/glog_ctx.go for the pattern this is grounded on.
package logging

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

type invocationIDKey struct{}

// WithInvocationID returns a context carrying a fresh correlation id,
// generated once per call to the top-level orchestration entrypoint.
func WithInvocationID(ctx context.Context) context.Context {
	return context.WithValue(ctx, invocationIDKey{}, uuid.New().String())
}

// InvocationID returns the correlation id on ctx, or "" if none was set.
func InvocationID(ctx context.Context) string {
	if v, ok := ctx.Value(invocationIDKey{}).(string); ok {
		return v
	}
	return ""
}

func tag(ctx context.Context) string {
	if id := InvocationID(ctx); id != "" {
		return fmt.Sprintf("invocation:%s ", id)
	}
	return ""
}

// InfofCtx logs at info level, prepending the invocation id if present.
func InfofCtx(ctx context.Context, format string, args ...interface{}) {
	glog.Infof(tag(ctx)+format, args...)
}

// WarningfCtx logs at warning level, prepending the invocation id if present.
func WarningfCtx(ctx context.Context, format string, args ...interface{}) {
	glog.Warningf(tag(ctx)+format, args...)
}

// ErrorfCtx logs at error level, prepending the invocation id if present.
func ErrorfCtx(ctx context.Context, format string, args ...interface{}) {
	glog.Errorf(tag(ctx)+format, args...)
}

// V reports whether verbosity level l is enabled, mirroring glog.V so call
// sites can guard expensive formatting: if logging.V(2) { ... }.
func V(l glog.Level) bool {
	return bool(glog.V(l))
}
