package ml

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

const (
	TypeLogisticRegression = "logistic_regression"
	TypeDecisionTree       = "decision_tree"
)

// Artifact is the serialized form of a trained model.
type Artifact struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	FeatureNames []string `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`

	// Exactly one of Classes and ClassCodes describes the model outputs.
	// Classes yields labels directly, ClassCodes yields codes for Labels.
	Classes    []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	ClassCodes []int    `json:"class_codes,omitempty" yaml:"class_codes,omitempty"`
	Labels     []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// logistic regression: one row per class, or a single row for binary
	Coef      [][]float64 `json:"coef,omitempty" yaml:"coef,omitempty"`
	Intercept []float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`

	// decision tree
	Nodes []TreeNode `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// Scaler, when set, preprocesses every row before the estimator.
	Scaler *Scaler `json:"scaler,omitempty" yaml:"scaler,omitempty"`
}

// Validate reports every structural problem at once.
func (a *Artifact) Validate() error {
	var err error
	if len(a.Classes) > 0 && len(a.ClassCodes) > 0 {
		err = multierr.Append(err, errors.New("classes and class_codes are mutually exclusive"))
	}
	classes := a.classCount()
	if classes == 0 {
		err = multierr.Append(err, errors.New("artifact declares no classes"))
	}
	for _, code := range a.ClassCodes {
		if len(a.Labels) > 0 && (code < 0 || code >= len(a.Labels)) {
			err = multierr.Append(err, fmt.Errorf("class code %d has no label", code))
		}
	}

	switch a.Type {
	case TypeLogisticRegression:
		err = multierr.Append(err, a.validateLinear(classes))
	case TypeDecisionTree:
		err = multierr.Append(err, validateTree(a.Nodes, len(a.FeatureNames), classes))
	case "":
		err = multierr.Append(err, errors.New("artifact type is missing"))
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported model type %q", a.Type))
	}
	if a.Scaler != nil {
		err = multierr.Append(err, a.Scaler.validate(a.width()))
	}
	return err
}

// width is the number of input columns the estimator reads, or 0 when the
// artifact does not pin it down.
func (a *Artifact) width() int {
	if len(a.FeatureNames) > 0 {
		return len(a.FeatureNames)
	}
	if len(a.Coef) > 0 {
		return len(a.Coef[0])
	}
	return 0
}

func (a *Artifact) validateLinear(classes int) error {
	var err error
	if len(a.Coef) == 0 {
		return errors.New("logistic regression has no coefficients")
	}
	rows := len(a.Coef)
	switch {
	case classes == 1:
		err = multierr.Append(err, errors.New("logistic regression needs at least 2 classes, got 1"))
	case classes == 2 && rows != 1 && rows != 2:
		err = multierr.Append(err, fmt.Errorf("binary model needs 1 or 2 coefficient rows, got %d", rows))
	case classes > 2 && rows != classes:
		err = multierr.Append(err, fmt.Errorf("expected %d coefficient rows, got %d", classes, rows))
	}
	if len(a.Intercept) != rows {
		err = multierr.Append(err, fmt.Errorf("expected %d intercepts, got %d", rows, len(a.Intercept)))
	}
	width := len(a.Coef[0])
	if len(a.FeatureNames) > 0 {
		width = len(a.FeatureNames)
	}
	for i, row := range a.Coef {
		if len(row) != width {
			err = multierr.Append(err, fmt.Errorf("coefficient row %d has %d values, want %d", i, len(row), width))
		}
	}
	return err
}

func (a *Artifact) classCount() int {
	if len(a.Classes) > 0 {
		return len(a.Classes)
	}
	return len(a.ClassCodes)
}

// Build validates the artifact and returns the matching classifier.
func (a *Artifact) Build() (Classifier, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s artifact: %w", a.Type, err)
	}
	table := classTable{
		names:  append([]string(nil), a.Classes...),
		codes:  append([]int(nil), a.ClassCodes...),
		labels: append([]string(nil), a.Labels...),
	}
	features := append([]string(nil), a.FeatureNames...)
	var estimator Classifier
	switch a.Type {
	case TypeDecisionTree:
		estimator = &DecisionTree{
			nodes:    append([]TreeNode(nil), a.Nodes...),
			features: features,
			classes:  table,
		}
	default:
		estimator = newLogisticRegression(a.Coef, a.Intercept, features, table)
	}
	if a.Scaler == nil {
		return estimator, nil
	}
	scaler := *a.Scaler
	return &Pipeline{scaler: &scaler, estimator: estimator}, nil
}

// classTable turns a class index into the model's raw output.
type classTable struct {
	names  []string
	codes  []int
	labels []string
}

func (t classTable) output(idx int) (any, error) {
	switch {
	case len(t.names) > 0:
		if idx < 0 || idx >= len(t.names) {
			return nil, fmt.Errorf("class index %d out of range", idx)
		}
		return t.names[idx], nil
	case len(t.codes) > 0:
		if idx < 0 || idx >= len(t.codes) {
			return nil, fmt.Errorf("class index %d out of range", idx)
		}
		return t.codes[idx], nil
	default:
		return idx, nil
	}
}

func (t classTable) decodeTable() []string {
	if len(t.labels) == 0 {
		return nil
	}
	return append([]string(nil), t.labels...)
}
