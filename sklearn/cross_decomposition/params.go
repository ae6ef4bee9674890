package cross_decomposition

import (
	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// GetParams returns the hyperparameters in scikit-learn naming.
func (m *MBPLS) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components":  m.cfg.nComponents,
		"method":        m.cfg.method.String(),
		"standardize":   m.cfg.standardize,
		"block_scaling": m.cfg.effectiveBlockScaling(),
		"max_iter":      m.cfg.maxIter,
		"tol":           m.cfg.tol,
	}
}

// SetParams updates hyperparameters and discards any previous fit.
// Unknown keys and values of the wrong type return a ConfigError and leave
// the model unchanged.
func (m *MBPLS) SetParams(params map[string]interface{}) error {
	cfg := m.cfg
	for key, value := range params {
		if err := applyParam(&cfg, key, value); err != nil {
			return err
		}
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	m.cfg = cfg
	m.state.Reset()
	m.fitted = nil
	return nil
}

func applyParam(cfg *config, key string, value interface{}) error {
	switch key {
	case "n_components":
		n, ok := value.(int)
		if !ok {
			return errors.NewConfigError(key, "must be an int", value)
		}
		cfg.nComponents = n
	case "method":
		switch v := value.(type) {
		case Method:
			cfg.method = v
		case string:
			method, err := ParseMethod(v)
			if err != nil {
				return err
			}
			cfg.method = method
		default:
			return errors.NewConfigError(key, "must be a Method or a string", value)
		}
	case "standardize":
		b, ok := value.(bool)
		if !ok {
			return errors.NewConfigError(key, "must be a bool", value)
		}
		cfg.standardize = b
	case "block_scaling":
		b, ok := value.(bool)
		if !ok {
			return errors.NewConfigError(key, "must be a bool", value)
		}
		cfg.blockScaling = b
		cfg.blockScalingSet = true
	case "max_iter":
		n, ok := value.(int)
		if !ok {
			return errors.NewConfigError(key, "must be an int", value)
		}
		cfg.maxIter = n
	case "tol":
		f, ok := value.(float64)
		if !ok {
			return errors.NewConfigError(key, "must be a float64", value)
		}
		cfg.tol = f
	default:
		return errors.NewConfigError(key, "unknown parameter", value)
	}
	return nil
}
