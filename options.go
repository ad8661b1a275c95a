package invoicepdf

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/layout"
	"github.com/lvillar/invoicepdf/render"
)

// Option is a functional option for configuring an Engine via New.
type Option func(*engineConfig)

type engineConfig struct {
	metrics  layout.Metrics
	logger   zerolog.Logger
	loader   assets.Loader
	backend  render.Backend
	validate bool
	clock    func() time.Time
}

// WithMetrics sets the pagination metrics.
func WithMetrics(m layout.Metrics) Option {
	return func(c *engineConfig) {
		c.metrics = m
	}
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithAssetLoader sets the loader for images, backgrounds and the asset()
// helper. Without one, images are skipped.
func WithAssetLoader(l assets.Loader) Option {
	return func(c *engineConfig) {
		c.loader = l
	}
}

// WithBackend replaces the primary PDF backend.
func WithBackend(b render.Backend) Option {
	return func(c *engineConfig) {
		c.backend = b
	}
}

// WithValidation enables or disables structural validation of the primary
// backend's output. It is enabled by default.
func WithValidation(on bool) Option {
	return func(c *engineConfig) {
		c.validate = on
	}
}

// WithClock sets the clock used for current-date fields.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) {
		c.clock = now
	}
}
