package internal

import (
	"log/slog"

	"github.com/starford/quire/internal/generation"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	backend generation.Backend
	logger  *slog.Logger
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithBackend sets the generation backend. The echo backend is used when
// none is given.
func WithBackend(b generation.Backend) Option {
	return func(a *application) {
		a.backend = b
	}
}

// WithLogger replaces the default JSON stdout logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}
