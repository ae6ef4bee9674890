// Package model provides state management for machine learning models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitting は Fit の実行中の状態
	Fitting
	// Fitted はモデルが学習済みの状態
	Fitted
)

// String returns the lowercase name of the state.
func (s EstimatorState) String() string {
	switch s {
	case NotFitted:
		return "not_fitted"
	case Fitting:
		return "fitting"
	case Fitted:
		return "fitted"
	default:
		return "unknown"
	}
}

// StateManager manages the fitted state of a model in a thread-safe manner.
// Fields are exported for gob encoding.
type StateManager struct {
	State EstimatorState
	mu    sync.RWMutex

	// Dimensions seen during fitting.
	BlockFeatures []int
	NSamples      int
	NTargets      int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{State: NotFitted}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State == Fitted
}

// Phase returns the current lifecycle state.
func (s *StateManager) Phase() EstimatorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// BeginFit resets the state and marks a fit as in progress.
func (s *StateManager) BeginFit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = Fitting
	s.BlockFeatures = nil
	s.NSamples = 0
	s.NTargets = 0
}

// SetFitted marks the model as fitted with the dimensions seen during Fit.
func (s *StateManager) SetFitted(blockFeatures []int, nSamples, nTargets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = Fitted
	s.BlockFeatures = append([]int(nil), blockFeatures...)
	s.NSamples = nSamples
	s.NTargets = nTargets
}

// Reset returns to the pre-fit state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = NotFitted
	s.BlockFeatures = nil
	s.NSamples = 0
	s.NTargets = 0
}

// GetDimensions returns the per-block feature counts, samples and targets seen during fitting.
func (s *StateManager) GetDimensions() (blockFeatures []int, nSamples, nTargets int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.BlockFeatures...), s.NSamples, s.NTargets
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// ModelState represents the complete state of a model.
// This can be used for serialization and debugging.
type ModelState struct {
	State         EstimatorState `json:"state"`
	BlockFeatures []int          `json:"block_features,omitempty"`
	NSamples      int            `json:"n_samples,omitempty"`
	NTargets      int            `json:"n_targets,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		State:         s.State,
		BlockFeatures: append([]int(nil), s.BlockFeatures...),
		NSamples:      s.NSamples,
		NTargets:      s.NTargets,
	}
}

// SetState sets the state from a ModelState struct.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.State = state.State
	s.BlockFeatures = append([]int(nil), state.BlockFeatures...)
	s.NSamples = state.NSamples
	s.NTargets = state.NTargets
}
