package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldError is one rejected input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rejected input of a submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + " " + f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

var (
	vOnce     sync.Once
	validate  *validator.Validate
	translate ut.Translator
)

func validatorSvc() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translate, _ = uni.GetTranslator("en")
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = en_translations.RegisterDefaultTranslations(validate, translate)
	})
	return validate, translate
}

// checkNumber enforces the slider bounds and step, returning "" when n is
// acceptable.
func checkNumber(f Field, n float64) string {
	tag := "gte=" + formatBound(f.Min) + ",lte=" + formatBound(f.Max)
	if msg := runVar(n, tag); msg != "" {
		return msg
	}
	if !onStep(f, n) {
		return fmt.Sprintf("must be a multiple of %s from %s", formatBound(f.Step), formatBound(f.Min))
	}
	return ""
}

// onStep reports whether n lies on the slider grid Min + k*Step.
func onStep(f Field, n float64) bool {
	if f.Step <= 0 {
		return true
	}
	k := (n - f.Min) / f.Step
	return math.Abs(k-math.Round(k)) <= stepTolerance
}

// stepTolerance absorbs decimal steps that have no exact float64 form.
const stepTolerance = 1e-6

// checkCategory enforces the dropdown enumeration.
func checkCategory(f Field, s string) string {
	if len(f.Values) == 0 {
		return fmt.Sprintf("has no allowed values, got %q", s)
	}
	quoted := make([]string, len(f.Values))
	for i, v := range f.Values {
		quoted[i] = "'" + v + "'"
	}
	return runVar(s, "required,oneof="+strings.Join(quoted, " "))
}

func runVar(value any, tag string) string {
	v, trans := validatorSvc()
	err := v.Var(value, tag)
	if err == nil {
		return ""
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	// Var has no field name, so the translation starts with the predicate.
	return strings.TrimSpace(verrs[0].Translate(trans))
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
