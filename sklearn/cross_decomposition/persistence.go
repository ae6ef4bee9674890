package cross_decomposition

import (
	"bytes"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/unipls/core/model"
	"github.com/YuminosukeSato/unipls/pkg/errors"
	"github.com/YuminosukeSato/unipls/preprocessing"
)

const snapshotVersion = "1.0"

// snapshot is the gob representation of an MBPLS. Logger and metrics
// collector are not persisted.
type snapshot struct {
	Version string
	ID      string

	NComponents     int
	Method          Method
	Standardize     bool
	BlockScaling    bool
	BlockScalingSet bool
	MaxIter         int
	Tol             float64
	Verbose         bool

	State model.ModelState

	BlockMeans   [][]float64
	BlockScales  [][]float64
	BlockFactors []float64
	YMean        []float64
	YScale       []float64

	Components []Component

	EVX      []float64
	EVBlocks [][]float64
	EVY      []float64
}

// GobEncode implements gob.GobEncoder.
func (m *MBPLS) GobEncode() ([]byte, error) {
	snap := snapshot{
		Version:         snapshotVersion,
		ID:              m.id,
		NComponents:     m.cfg.nComponents,
		Method:          m.cfg.method,
		Standardize:     m.cfg.standardize,
		BlockScaling:    m.cfg.blockScaling,
		BlockScalingSet: m.cfg.blockScalingSet,
		MaxIter:         m.cfg.maxIter,
		Tol:             m.cfg.tol,
		Verbose:         m.cfg.verbose,
		State:           model.ModelState{State: model.NotFitted},
	}

	if m.state.IsFitted() {
		fs := m.fitted
		snap.State = m.state.GetState()
		for b, s := range fs.scaler.Blocks {
			snap.BlockMeans = append(snap.BlockMeans, cloneFloats(s.Mean))
			snap.BlockScales = append(snap.BlockScales, cloneFloats(s.Scale))
			snap.BlockFactors = append(snap.BlockFactors, fs.scaler.BlockFactors[b])
		}
		snap.YMean = cloneFloats(fs.scaler.Y.Mean)
		snap.YScale = cloneFloats(fs.scaler.Y.Scale)
		snap.Components = fs.components
		snap.EVX = fs.evX
		snap.EVBlocks = fs.evBlocks
		snap.EVY = fs.evY
	}

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(&snap, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. Rotations and coefficients are
// recomputed from the stored components. A snapshot whose shapes do not
// agree is rejected with a DimensionError and leaves m untouched.
func (m *MBPLS) GobDecode(data []byte) error {
	return errors.SafeExecute("MBPLS.GobDecode", func() error {
		return m.decode(data)
	})
}

func (m *MBPLS) decode(data []byte) error {
	var snap snapshot
	if err := model.LoadModelFromReader(&snap, bytes.NewReader(data)); err != nil {
		return err
	}
	if snap.Version != snapshotVersion {
		return errors.NewValueError("MBPLS.GobDecode", "unsupported snapshot version "+snap.Version)
	}

	cfg := defaultConfig()
	cfg.nComponents = snap.NComponents
	cfg.method = snap.Method
	cfg.standardize = snap.Standardize
	cfg.blockScaling = snap.BlockScaling
	cfg.blockScalingSet = snap.BlockScalingSet
	cfg.maxIter = snap.MaxIter
	cfg.tol = snap.Tol
	cfg.verbose = snap.Verbose
	if err := cfg.validate(); err != nil {
		return err
	}
	if m.cfg.logger != nil {
		cfg.logger = m.cfg.logger
	}
	cfg.metrics = m.cfg.metrics

	var fs *fitState
	if snap.State.State == model.Fitted {
		var err error
		if fs, err = restoreFitState(cfg, &snap); err != nil {
			return err
		}
	}

	m.cfg = cfg
	m.id = snap.ID
	m.state = model.NewStateManager()
	m.fitted = fs
	m.initLogger()
	if fs != nil {
		m.state.SetState(snap.State)
	}
	return nil
}

// checkSnapshot verifies that every stored slice agrees with the block sizes,
// sample count and target count recorded at fit time.
func checkSnapshot(cfg config, snap *snapshot) error {
	const op = "MBPLS.GobDecode"

	sizes := snap.State.BlockFeatures
	nBlocks := len(sizes)
	n, q := snap.State.NSamples, snap.State.NTargets
	if nBlocks == 0 || n == 0 || q == 0 {
		return errors.NewModelError(op, "fitted snapshot without dimensions", errors.ErrEmptyData)
	}
	if len(snap.Components) != cfg.nComponents {
		return errors.NewDimensionError(op, cfg.nComponents, len(snap.Components), 1)
	}

	perBlock := []int{len(snap.BlockMeans), len(snap.BlockScales), len(snap.BlockFactors), len(snap.EVBlocks)}
	for _, got := range perBlock {
		if got != nBlocks {
			return errors.NewDimensionError(op, nBlocks, got, 2)
		}
	}
	if len(snap.YMean) != q {
		return errors.NewDimensionError(op, q, len(snap.YMean), 1)
	}

	A := cfg.nComponents
	if len(snap.EVX) != A || len(snap.EVY) != A {
		return errors.NewDimensionError(op, A, min(len(snap.EVX), len(snap.EVY)), 1)
	}
	for b, p := range sizes {
		if len(snap.BlockMeans[b]) != p {
			return errors.NewBlockDimensionError(op, b, p, len(snap.BlockMeans[b]), 1)
		}
		if len(snap.EVBlocks[b]) != A {
			return errors.NewBlockDimensionError(op, b, A, len(snap.EVBlocks[b]), 1)
		}
	}

	for _, c := range snap.Components {
		if len(c.Superscore) != n {
			return errors.NewDimensionError(op, n, len(c.Superscore), 0)
		}
		if len(c.YWeight) != q || len(c.YLoading) != q {
			return errors.NewDimensionError(op, q, min(len(c.YWeight), len(c.YLoading)), 1)
		}
		perBlock := []int{len(c.BlockWeights), len(c.BlockScores), len(c.BlockLoadings), len(c.Superweights), len(c.Importances)}
		for _, got := range perBlock {
			if got != nBlocks {
				return errors.NewDimensionError(op, nBlocks, got, 2)
			}
		}
		for b, p := range sizes {
			if len(c.BlockWeights[b]) != p {
				return errors.NewBlockDimensionError(op, b, p, len(c.BlockWeights[b]), 1)
			}
			if len(c.BlockLoadings[b]) != p {
				return errors.NewBlockDimensionError(op, b, p, len(c.BlockLoadings[b]), 1)
			}
			if len(c.BlockScores[b]) != n {
				return errors.NewBlockDimensionError(op, b, n, len(c.BlockScores[b]), 0)
			}
		}
	}
	return nil
}

func restoreFitState(cfg config, snap *snapshot) (*fitState, error) {
	if err := checkSnapshot(cfg, snap); err != nil {
		return nil, err
	}

	blocks := make([]*preprocessing.StandardScaler, len(snap.BlockMeans))
	for b := range snap.BlockMeans {
		s, err := preprocessing.RestoreStandardScaler(snap.BlockMeans[b], snap.BlockScales[b], true, cfg.standardize)
		if err != nil {
			return nil, err
		}
		blocks[b] = s
	}
	ys, err := preprocessing.RestoreStandardScaler(snap.YMean, snap.YScale, true, cfg.standardize)
	if err != nil {
		return nil, err
	}
	scaler, err := preprocessing.RestoreBlockScaler(cfg.standardize, cfg.effectiveBlockScaling(), blocks, snap.BlockFactors, ys)
	if err != nil {
		return nil, err
	}

	sizes := snap.State.BlockFeatures
	R, err := rotations(snap.Components, sizes)
	if err != nil {
		return nil, err
	}
	return &fitState{
		scaler:     scaler,
		components: snap.Components,
		rotations:  R,
		coef:       coefficients(R, snap.Components),
		blockSizes: append([]int(nil), sizes...),
		nSamples:   snap.State.NSamples,
		nTargets:   snap.State.NTargets,
		evX:        snap.EVX,
		evBlocks:   snap.EVBlocks,
		evY:        snap.EVY,
	}, nil
}

// Save writes the model to w in gob format.
func (m *MBPLS) Save(w io.Writer) error {
	return model.SaveModelToWriter(m, w)
}

// Load replaces the model with one read from r.
func (m *MBPLS) Load(r io.Reader) error {
	return model.LoadModelFromReader(m, r)
}

// ExportWeights returns the fitted model as a linear map in original units:
// Ŷ = X·Coefficients + Intercepts, with the rows of Coefficients ordered
// block by block.
func (m *MBPLS) ExportWeights() (*model.ModelWeights, error) {
	fs, err := m.fittedState("ExportWeights")
	if err != nil {
		return nil, err
	}

	coef, intercepts := originalCoefficients(fs)
	rows, _ := coef.Dims()
	table := make([][]float64, rows)
	for i := range table {
		table[i] = mat.Row(nil, i, coef)
	}

	importances := make([][]float64, len(fs.blockSizes))
	for b := range importances {
		for _, c := range fs.components {
			importances[b] = append(importances[b], c.Importances[b])
		}
	}
	return &model.ModelWeights{
		ModelType:       modelName,
		Version:         snapshotVersion,
		Coefficients:    table,
		Intercepts:      intercepts,
		BlockSizes:      append([]int(nil), fs.blockSizes...),
		Hyperparameters: m.GetParams(),
		Metadata: map[string]interface{}{
			"estimator_id":         m.id,
			"n_samples":            fs.nSamples,
			"explained_variance_y": cloneFloats(fs.evY),
			"block_importances":    importances,
		},
		IsFitted: true,
	}, nil
}

// originalCoefficients folds the block scaling into B so that predictions can
// be made on raw inputs.
func originalCoefficients(fs *fitState) (*mat.Dense, []float64) {
	rows, q := fs.coef.Dims()
	coef := mat.NewDense(rows, q, nil)
	intercepts := cloneFloats(fs.scaler.Y.Mean)

	row := 0
	for b, s := range fs.scaler.Blocks {
		factor := fs.scaler.BlockFactors[b]
		for j := 0; j < s.NFeatures; j++ {
			for k := 0; k < q; k++ {
				v := fs.coef.At(row, k) * factor / s.Scale[j] * fs.scaler.Y.Scale[k]
				coef.Set(row, k, v)
				intercepts[k] -= s.Mean[j] * v
			}
			row++
		}
	}
	return coef, intercepts
}
