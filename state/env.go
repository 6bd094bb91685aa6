// Package state carries the per-run environment through the context of the
// command tree.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"dtc/config"
)

// LocalEnv bundles the objects every command needs, one instance travels
// from root command setup to subcommand teardown.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// build subcommand switches
	NoDirs    bool
	Overwrite bool

	// DefaultStyle is the built-in stylesheet used when the document brings
	// none of its own.
	DefaultStyle []byte

	// CodePage forces a file name encoding for zip archives whose entries
	// are not marked as UTF-8.
	CodePage encoding.Encoding

	start         time.Time
	restoreStdLog func()
}

type envKey struct{}

// ContextWithEnv returns a context carrying a fresh environment.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

// EnvFromContext pulls the environment back out. Commands only ever run
// under a context produced by ContextWithEnv, anything else is a wiring
// mistake.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("run environment missing from context")
	}
	return env
}

// Uptime reports how long ago the environment was created.
func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// RedirectStdLog routes standard library log output through Log.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

// RestoreStdLog undoes RedirectStdLog and flushes the logger.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
