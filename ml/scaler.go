package ml

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// Scaler is the fitted preprocessing step some pipelines apply to numeric
// columns before the estimator. Standard computes (x-mean)/scale, minmax
// computes (x-min)/(max-min). Entries for one-hot columns are usually the
// identity (mean 0, scale 1 or min 0, max 1).
type Scaler struct {
	Kind  string    `json:"kind" yaml:"kind"`
	Mean  []float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Min   []float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   []float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

func (s *Scaler) width() int {
	if s.Kind == ScalerMinMax {
		return len(s.Min)
	}
	return len(s.Mean)
}

func (s *Scaler) validate(width int) error {
	var err error
	switch s.Kind {
	case ScalerStandard:
		if len(s.Mean) != len(s.Scale) {
			err = multierr.Append(err, fmt.Errorf("scaler has %d means but %d scales", len(s.Mean), len(s.Scale)))
		}
		for i, v := range s.Scale {
			if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				err = multierr.Append(err, fmt.Errorf("scaler scale[%d] must be finite and non-zero", i))
			}
		}
	case ScalerMinMax:
		if len(s.Min) != len(s.Max) {
			err = multierr.Append(err, fmt.Errorf("scaler has %d minimums but %d maximums", len(s.Min), len(s.Max)))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported scaler kind %q", s.Kind))
	}
	if width > 0 && s.width() != width {
		err = multierr.Append(err, fmt.Errorf("scaler covers %d features, model has %d", s.width(), width))
	}
	return err
}

// Transform returns a scaled copy of values.
func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != s.width() {
		return nil, errors.New("values/scaler length mismatch")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if s.Kind == ScalerMinMax {
			out[i] = normalizeFeature(v, s.Min[i], s.Max[i])
		} else {
			out[i] = (v - s.Mean[i]) / s.Scale[i]
		}
	}
	return out, nil
}

func normalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

// Pipeline applies a scaler before delegating to the estimator.
type Pipeline struct {
	scaler    *Scaler
	estimator Classifier
}

func (p *Pipeline) Predict(rows [][]float64) ([]any, error) {
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		out, err := p.scaler.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("X has %d features, but the scaler is expecting %d features", len(row), p.scaler.width())
		}
		scaled[i] = out
	}
	return p.estimator.Predict(scaled)
}

func (p *Pipeline) CheckWidth(n int) error {
	if p.scaler.width() != n {
		return fmt.Errorf("scaler covers %d features, rows have %d", p.scaler.width(), n)
	}
	if wc, ok := p.estimator.(WidthChecker); ok {
		return wc.CheckWidth(n)
	}
	return nil
}

func (p *Pipeline) FeatureNames() []string {
	return p.estimator.FeatureNames()
}

func (p *Pipeline) Labels() []string {
	return p.estimator.Labels()
}
