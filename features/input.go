package features

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RawInput is one validated form submission. It is immutable once built.
type RawInput struct {
	fields      []Field
	numeric     map[string]float64
	categorical map[string]string
}

// Number returns a numeric field value.
func (r RawInput) Number(name string) (float64, bool) {
	v, ok := r.numeric[name]
	return v, ok
}

// Category returns a categorical field value.
func (r RawInput) Category(name string) (string, bool) {
	v, ok := r.categorical[name]
	return v, ok
}

// Values flattens the input back to field name -> value, e.g. for echoing
// a submission to the presentation layer.
func (r RawInput) Values() map[string]any {
	out := make(map[string]any, len(r.fields))
	for name, v := range r.numeric {
		out[name] = v
	}
	for name, v := range r.categorical {
		out[name] = v
	}
	return out
}

// NewInput validates field values against the layout and freezes them.
// Numbers may arrive as float64, int, json.Number or numeric strings.
func (l Layout) NewInput(values map[string]any) (RawInput, error) {
	raw := RawInput{
		fields:      l.Fields,
		numeric:     make(map[string]float64),
		categorical: make(map[string]string),
	}
	var problems ValidationError
	for _, f := range l.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			problems.add(f.Name, "is required")
			continue
		}
		switch f.Kind {
		case Numeric:
			n, err := toFloat(v)
			if err != nil {
				problems.add(f.Name, err.Error())
				continue
			}
			if msg := checkNumber(f, n); msg != "" {
				problems.add(f.Name, msg)
				continue
			}
			raw.numeric[f.Name] = n
		case Categorical:
			s, ok := v.(string)
			if !ok {
				problems.add(f.Name, "must be a string")
				continue
			}
			if msg := checkCategory(f, s); msg != "" {
				problems.add(f.Name, msg)
				continue
			}
			raw.categorical[f.Name] = s
		}
	}
	if len(problems.Fields) > 0 {
		return RawInput{}, &problems
	}
	return raw, nil
}

// ParseForm is NewInput for url-encoded form posts.
func (l Layout) ParseForm(form url.Values) (RawInput, error) {
	values := make(map[string]any, len(form))
	for key := range form {
		values[key] = form.Get(key)
	}
	return l.NewInput(values)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number, got %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be a number, got %T", v)
	}
}
