package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogisticRegression reproduces scikit-learn's LogisticRegression.predict:
// a single coefficient row is a binary model thresholded at 0, several rows
// are scored independently and the highest wins.
type LogisticRegression struct {
	coef      [][]float64
	intercept []float64
	features  []string
	classes   classTable
}

func newLogisticRegression(coef [][]float64, intercept []float64, features []string, classes classTable) *LogisticRegression {
	rows := make([][]float64, len(coef))
	for i, r := range coef {
		rows[i] = append([]float64(nil), r...)
	}
	return &LogisticRegression{
		coef:      rows,
		intercept: append([]float64(nil), intercept...),
		features:  features,
		classes:   classes,
	}
}

func (m *LogisticRegression) Predict(rows [][]float64) ([]any, error) {
	out := make([]any, 0, len(rows))
	for i, row := range rows {
		idx, err := m.classify(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		label, err := m.classes.output(idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, label)
	}
	return out, nil
}

func (m *LogisticRegression) FeatureNames() []string {
	if len(m.features) == 0 {
		return nil
	}
	return append([]string(nil), m.features...)
}

func (m *LogisticRegression) Labels() []string {
	return m.classes.decodeTable()
}

func (m *LogisticRegression) CheckWidth(n int) error {
	if width := len(m.coef[0]); n != width {
		return fmt.Errorf("model reads %d features, rows have %d", width, n)
	}
	return nil
}

// DecisionFunction returns the raw per-row scores.
func (m *LogisticRegression) DecisionFunction(row []float64) ([]float64, error) {
	width := len(m.coef[0])
	if len(row) != width {
		return nil, fmt.Errorf("X has %d features, but the model is expecting %d features", len(row), width)
	}
	scores := make([]float64, len(m.coef))
	for i, c := range m.coef {
		scores[i] = floats.Dot(c, row) + m.intercept[i]
		if math.IsNaN(scores[i]) || math.IsInf(scores[i], 0) {
			return nil, fmt.Errorf("non-finite decision score for class %d", i)
		}
	}
	return scores, nil
}

func (m *LogisticRegression) classify(row []float64) (int, error) {
	scores, err := m.DecisionFunction(row)
	if err != nil {
		return 0, err
	}
	if len(scores) == 1 {
		if scores[0] > 0 {
			return 1, nil
		}
		return 0, nil
	}
	return floats.MaxIdx(scores), nil
}
