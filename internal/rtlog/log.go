// Package rtlog provides the component-tagged logging facade used across
// the flowrt runtime. It wraps zerolog the way the teacher codebase wrapped
// log/slog: a package-level default logger, a component tag on every line,
// and leveled helper functions taking loosely-typed key/value pairs.
package rtlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Component identifies a runtime subsystem for log filtering.
type Component string

// Runtime component identifiers.
const (
	ComponentChannel   Component = "channel"
	ComponentCollector Component = "collector"
	ComponentNet       Component = "net"
	ComponentRouting   Component = "routing"
	ComponentFirewall  Component = "firewall"
	ComponentProgram   Component = "program"
	ComponentConfig    Component = "config"
	ComponentGuard     Component = "guard"
)

var (
	// base is the default logger used by the runtime.
	base zerolog.Logger

	// mutex protects logger configuration.
	mutex sync.RWMutex
)

func init() {
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)
}

// SetLevel sets the minimum log level for all runtime logging.
func SetLevel(level zerolog.Level) {
	mutex.Lock()
	defer mutex.Unlock()
	base = base.Level(level)
}

// SetOutput replaces the writer the default logger writes to.
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()
	base = base.Output(w)
}

// SetLogger replaces the default logger outright.
func SetLogger(l zerolog.Logger) {
	mutex.Lock()
	defer mutex.Unlock()
	base = l
}

// For returns a component- and name-tagged sub-logger, suitable for
// attaching to a single Net or Channel for the lifetime of the run.
func For(component Component, name string) zerolog.Logger {
	mutex.RLock()
	defer mutex.RUnlock()
	return base.With().Str("component", string(component)).Str("name", name).Logger()
}

func fields(ev *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	return ev
}

// Debug logs a debug message with the given component. args are loose
// key/value pairs, mirroring the teacher's LogDebug(component, msg, args...).
func Debug(component Component, msg string, args ...any) {
	mutex.RLock()
	l := base
	mutex.RUnlock()
	fields(l.Debug().Str("component", string(component)), args).Msg(msg)
}

// Info logs an info message with the given component.
func Info(component Component, msg string, args ...any) {
	mutex.RLock()
	l := base
	mutex.RUnlock()
	fields(l.Info().Str("component", string(component)), args).Msg(msg)
}

// Warn logs a warning message with the given component.
func Warn(component Component, msg string, args ...any) {
	mutex.RLock()
	l := base
	mutex.RUnlock()
	fields(l.Warn().Str("component", string(component)), args).Msg(msg)
}

// Error logs an error message with the given component.
func Error(component Component, msg string, args ...any) {
	mutex.RLock()
	l := base
	mutex.RUnlock()
	fields(l.Error().Str("component", string(component)), args).Msg(msg)
}
