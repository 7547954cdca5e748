package internal

import "io"

// Mode selects the transport the application serves.
type Mode int

// Run modes.
const (
	ModeHTTP Mode = iota
	ModeMCP
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      Mode
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeHTTP.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithLogOutput redirects the JSON log. MCP mode needs stdout for the
// protocol, so it defaults to stderr there.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
