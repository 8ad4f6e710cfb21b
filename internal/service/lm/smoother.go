package lm

import (
	"fmt"
	"sort"

	model "ngramlm/internal/model/ngram"
)

// SmoothingFunc scores an n-gram with a smoothed probability estimate
type SmoothingFunc func(seq model.NGram) float64

// Smoother defines the interface for n-gram probability smoothing algorithms
type Smoother interface {
	// Smooth computes the smoothed probability of the last token of seq given
	// the tokens before it
	Smooth(seq model.NGram) float64

	// Name returns the name of the smoothing algorithm
	Name() string
}

const (
	SmootherInterpolation = "interpolation"
	SmootherDiscount      = "discount"
)

// InterpolationSmoother implements linear interpolation smoothing
type InterpolationSmoother struct {
	model *LanguageModel
}

// NewInterpolationSmoother creates a linear interpolation smoother over m
func NewInterpolationSmoother(m *LanguageModel) *InterpolationSmoother {
	return &InterpolationSmoother{model: m}
}

func (s *InterpolationSmoother) Smooth(seq model.NGram) float64 {
	return s.model.LinearInterpolation(seq)
}

func (s *InterpolationSmoother) Name() string {
	return SmootherInterpolation
}

// DiscountSmoother implements absolute discounting
type DiscountSmoother struct {
	model *LanguageModel
}

// NewDiscountSmoother creates an absolute discounting smoother over m
func NewDiscountSmoother(m *LanguageModel) *DiscountSmoother {
	return &DiscountSmoother{model: m}
}

func (s *DiscountSmoother) Smooth(seq model.NGram) float64 {
	return s.model.AbsoluteDiscount(seq)
}

func (s *DiscountSmoother) Name() string {
	return SmootherDiscount
}

// Smoother returns the named smoother bound to this model
func (m *LanguageModel) Smoother(name string) (Smoother, error) {
	switch name {
	case SmootherInterpolation, "":
		return NewInterpolationSmoother(m), nil
	case SmootherDiscount:
		return NewDiscountSmoother(m), nil
	default:
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownSmoother, name, SmootherNames())
	}
}

// SmootherNames lists the supported smoother names
func SmootherNames() []string {
	names := []string{SmootherInterpolation, SmootherDiscount}
	sort.Strings(names)
	return names
}
