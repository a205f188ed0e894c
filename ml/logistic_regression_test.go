package ml

import (
	"math"
	"strings"
	"testing"
)

func TestLogisticRegressionMultinomial(t *testing.T) {
	a := &Artifact{
		Type:         TypeLogisticRegression,
		FeatureNames: []string{"a", "b"},
		Classes:      []string{"Angle-Closure Glaucoma", "Normal-Tension Glaucoma", "Open-Angle Glaucoma"},
		Coef: [][]float64{
			{1, 0},
			{0, 1},
			{-1, -1},
		},
		Intercept: []float64{0, 0, 0.5},
	}
	model, err := a.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := model.Predict([][]float64{{2, 1}, {0, 3}, {0, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Angle-Closure Glaucoma", "Normal-Tension Glaucoma", "Open-Angle Glaucoma"}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("row %d: expected %q, got %v", i, w, out[i])
		}
	}
}

func TestLogisticRegressionBinaryCodes(t *testing.T) {
	a := &Artifact{
		Type:       TypeLogisticRegression,
		ClassCodes: []int{0, 1},
		Labels:     []string{"No Glaucoma", "Glaucoma"},
		Coef:       [][]float64{{0.2, 4}},
		Intercept:  []float64{-6},
	}
	model, err := a.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := model.Predict([][]float64{{10, 0.3}, {25, 0.8}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 0 || out[1] != 1 {
		t.Fatalf("unexpected codes: %v", out)
	}
	if model.FeatureNames() != nil {
		t.Fatalf("expected no feature names, got %v", model.FeatureNames())
	}
}

func TestLogisticRegressionErrors(t *testing.T) {
	a := &Artifact{
		Type:      TypeLogisticRegression,
		Classes:   []string{"No", "Yes"},
		Coef:      [][]float64{{1, 1}},
		Intercept: []float64{0},
	}
	model, err := a.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.Predict([][]float64{{1, 2, 3}}); err == nil || !strings.Contains(err.Error(), "expecting 2 features") {
		t.Fatalf("expected shape error, got %v", err)
	}
	if _, err := model.Predict([][]float64{{math.Inf(1), math.Inf(-1)}}); err == nil {
		t.Fatal("expected numeric error")
	}
}

func TestArtifactValidateCollectsProblems(t *testing.T) {
	a := &Artifact{
		Type:         TypeLogisticRegression,
		FeatureNames: []string{"a", "b", "c"},
		Classes:      []string{"x", "y", "z"},
		ClassCodes:   []int{0, 1, 2},
		Coef:         [][]float64{{1, 2}},
		Intercept:    []float64{0, 0},
	}
	err := a.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, part := range []string{"mutually exclusive", "coefficient rows", "intercepts", "row 0"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("expected %q in %q", part, err.Error())
		}
	}

	if err := (&Artifact{Type: "svm", Classes: []string{"a"}}).Validate(); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestLogisticRegressionNeedsTwoClasses(t *testing.T) {
	a := &Artifact{
		Type:      TypeLogisticRegression,
		Classes:   []string{"Glaucoma"},
		Coef:      [][]float64{{1, 1}},
		Intercept: []float64{0},
	}
	if _, err := a.Build(); err == nil || !strings.Contains(err.Error(), "at least 2 classes") {
		t.Fatalf("expected class count error, got %v", err)
	}
}

func TestLogisticRegressionCheckWidth(t *testing.T) {
	model := newLogisticRegression([][]float64{{1, 1}}, []float64{0}, nil, classTable{})
	if err := model.CheckWidth(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.CheckWidth(13); err == nil {
		t.Fatal("expected width error")
	}
}
