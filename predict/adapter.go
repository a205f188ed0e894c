// Package predict runs an encoded feature row through the loaded model and
// turns the raw output into something a clinician can read.
package predict

import (
	"fmt"
	"math"

	"glaucomaml/features"
	"glaucomaml/ml"
)

// InferenceError wraps any failure inside the model call. It is meant to be
// shown to the user; the process keeps serving afterwards.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "Error making prediction: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one prediction.
type Result struct {
	Label          string `json:"label"`
	Interpretation string `json:"interpretation"`
	// Code is set when the model emitted a class code that was decoded.
	Code *int `json:"code,omitempty"`
}

// Adapter maps model output to a Result under a label contract.
type Adapter struct {
	contract Contract
}

func NewAdapter(contract Contract) *Adapter {
	return &Adapter{contract: contract}
}

// Predict runs model on the single row in v.
func (a *Adapter) Predict(model ml.Classifier, v features.Vector) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &InferenceError{Err: fmt.Errorf("model panicked: %v", r)}
		}
	}()

	out, err := model.Predict([][]float64{v.Row()})
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}
	if len(out) != 1 {
		return Result{}, &InferenceError{Err: fmt.Errorf("expected 1 prediction, got %d", len(out))}
	}

	label, code, err := a.decode(model, out[0])
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}
	return Result{
		Label:          label,
		Interpretation: a.contract.Interpret(label),
		Code:           code,
	}, nil
}

func (a *Adapter) decode(model ml.Classifier, raw any) (string, *int, error) {
	var code int
	switch x := raw.(type) {
	case string:
		return x, nil, nil
	case int:
		code = x
	case int32:
		code = int(x)
	case int64:
		code = int(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return "", nil, fmt.Errorf("model returned non-integral class %v", x)
		}
		code = int(x)
	default:
		return "", nil, fmt.Errorf("model returned unsupported class type %T", raw)
	}

	table := a.contract.Labels
	if len(table) == 0 {
		table = model.Labels()
	}
	if len(table) == 0 {
		return "", nil, fmt.Errorf("model returned class code %d but no label table is available", code)
	}
	if code < 0 || code >= len(table) {
		return "", nil, fmt.Errorf("class code %d outside label table of %d entries", code, len(table))
	}
	return table[code], &code, nil
}
