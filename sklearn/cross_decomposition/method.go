package cross_decomposition

import (
	"strings"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// Method selects the numerical strategy used to extract latent components.
type Method int

const (
	// SVD takes the leading singular pair of the residual cross-product XᵀY.
	SVD Method = iota
	// NIPALS iterates block-wise until the superscore converges.
	NIPALS
	// SIMPLS deflates the cross-product instead of the data.
	SIMPLS
)

// String returns the canonical upper-case name of the method.
func (m Method) String() string {
	switch m {
	case SVD:
		return "SVD"
	case NIPALS:
		return "NIPALS"
	case SIMPLS:
		return "SIMPLS"
	default:
		return "UNKNOWN"
	}
}

// label is the lower-case name used for metric labels.
func (m Method) label() string {
	return strings.ToLower(m.String())
}

func (m Method) valid() bool {
	return m == SVD || m == NIPALS || m == SIMPLS
}

// ParseMethod converts "SVD", "NIPALS" or "SIMPLS" (any case) to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "SVD":
		return SVD, nil
	case "NIPALS":
		return NIPALS, nil
	case "SIMPLS":
		return SIMPLS, nil
	default:
		return SVD, errors.NewConfigError("method", "must be one of SVD, NIPALS, SIMPLS", name)
	}
}
