package cross_decomposition

import (
	"math"

	"github.com/YuminosukeSato/unipls/pkg/errors"
	"github.com/YuminosukeSato/unipls/pkg/log"
	"github.com/YuminosukeSato/unipls/pkg/telemetry"
)

// Default hyperparameters.
const (
	DefaultNComponents = 2
	DefaultMaxIter     = 500
	DefaultTol         = 1e-10
)

// config holds the hyperparameters fixed at construction.
type config struct {
	nComponents int
	method      Method
	standardize bool
	maxIter     int
	tol         float64
	verbose     bool

	// blockScaling follows standardize unless set explicitly
	blockScaling    bool
	blockScalingSet bool

	logger  log.Logger
	metrics *telemetry.Collector
}

func defaultConfig() config {
	return config{
		nComponents: DefaultNComponents,
		method:      SVD,
		standardize: true,
		maxIter:     DefaultMaxIter,
		tol:         DefaultTol,
	}
}

// effectiveBlockScaling resolves the block scaling flag against standardize.
func (c config) effectiveBlockScaling() bool {
	if c.blockScalingSet {
		return c.blockScaling
	}
	return c.standardize
}

func (c config) validate() error {
	if c.nComponents <= 0 {
		return errors.NewConfigError("n_components", "must be positive", c.nComponents)
	}
	if !c.method.valid() {
		return errors.NewConfigError("method", "must be one of SVD, NIPALS, SIMPLS", int(c.method))
	}
	if c.maxIter <= 0 {
		return errors.NewConfigError("max_iter", "must be positive", c.maxIter)
	}
	if c.tol <= 0 || math.IsNaN(c.tol) || math.IsInf(c.tol, 0) {
		return errors.NewConfigError("tol", "must be a positive finite number", c.tol)
	}
	return nil
}

// Option is a functional option for MBPLS.
type Option func(*config)

// WithNComponents sets the number of latent components to extract.
func WithNComponents(n int) Option {
	return func(c *config) {
		c.nComponents = n
	}
}

// WithMethod sets the solver strategy.
func WithMethod(m Method) Option {
	return func(c *config) {
		c.method = m
	}
}

// WithStandardize sets whether columns are divided by their standard deviation.
func WithStandardize(standardize bool) Option {
	return func(c *config) {
		c.standardize = standardize
	}
}

// WithBlockScaling sets whether each block is scaled to unit sum of squares.
// Without this option it follows WithStandardize.
func WithBlockScaling(enabled bool) Option {
	return func(c *config) {
		c.blockScaling = enabled
		c.blockScalingSet = true
	}
}

// WithMaxIter sets the NIPALS iteration limit per component.
func WithMaxIter(n int) Option {
	return func(c *config) {
		c.maxIter = n
	}
}

// WithTol sets the NIPALS relative convergence tolerance.
func WithTol(tol float64) Option {
	return func(c *config) {
		c.tol = tol
	}
}

// WithLogger replaces the package logger.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records fit metrics into collector.
func WithMetrics(collector *telemetry.Collector) Option {
	return func(c *config) {
		c.metrics = collector
	}
}

// WithVerbose logs fit start and end at Info level.
func WithVerbose(verbose bool) Option {
	return func(c *config) {
		c.verbose = verbose
	}
}
