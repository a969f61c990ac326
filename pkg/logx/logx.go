// Package logx wraps logw with API-key censorship: every rendered record
// has the configured key replaced by a same-length run of '*' before it
// reaches the sink.
package logx

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/seekerror/logw"
)

var (
	mu      sync.RWMutex
	keyword string
)

// SetCensorKeyword installs the secret to censor from all records. An
// empty keyword disables censorship.
func SetCensorKeyword(k string) {
	mu.Lock()
	defer mu.Unlock()

	keyword = k
}

// Censor replaces every occurrence of the configured keyword in s with a
// same-length run of '*'.
func Censor(s string) string {
	mu.RLock()
	k := keyword
	mu.RUnlock()

	if k == "" {
		return s
	}
	return strings.ReplaceAll(s, k, strings.Repeat("*", len(k)))
}

func render(format string, args ...any) string {
	return Censor(fmt.Sprintf(format, args...))
}

func Debugf(ctx context.Context, format string, args ...any) {
	logw.Debugf(ctx, "%v", render(format, args...))
}

func Infof(ctx context.Context, format string, args ...any) {
	logw.Infof(ctx, "%v", render(format, args...))
}

func Warningf(ctx context.Context, format string, args ...any) {
	logw.Warningf(ctx, "%v", render(format, args...))
}

func Errorf(ctx context.Context, format string, args ...any) {
	logw.Errorf(ctx, "%v", render(format, args...))
}

// Exitf logs the censored record and exits the process.
func Exitf(ctx context.Context, format string, args ...any) {
	logw.Exitf(ctx, "%v", render(format, args...))
}
