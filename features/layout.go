// Package features turns validated form values into the single-row feature
// vector a trained classifier expects.
package features

// Kind distinguishes scalar inputs from enumerated ones.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Field is one row of the declarative input table.
type Field struct {
	Name string
	Kind Kind

	// numeric fields
	Min     float64
	Max     float64
	Default float64
	Step    float64

	// categorical fields, in the order their indicator columns are emitted
	Values       []string
	DefaultValue string
}

// NumericField declares a bounded scalar input whose column name is its name.
func NumericField(name string, min, max, def, step float64) Field {
	return Field{
		Name:    name,
		Kind:    Numeric,
		Min:     min,
		Max:     max,
		Default: def,
		Step:    step,
	}
}

// CategoricalField declares an enumerated input. The first value is the default.
func CategoricalField(name string, values ...string) Field {
	f := Field{
		Name:   name,
		Kind:   Categorical,
		Values: append([]string(nil), values...),
	}
	if len(values) > 0 {
		f.DefaultValue = values[0]
	}
	return f
}

// Columns returns the columns the encoder emits for this field.
func (f Field) Columns() []string {
	if f.Kind == Numeric {
		return []string{normalize(f.Name)}
	}
	cols := make([]string, len(f.Values))
	for i, v := range f.Values {
		cols[i] = IndicatorColumn(f.Name, v)
	}
	return cols
}

// Allows reports whether value is one of the declared categories.
func (f Field) Allows(value string) bool {
	for _, v := range f.Values {
		if v == value {
			return true
		}
	}
	return false
}

// IndicatorColumn names the one-hot column for a categorical value.
func IndicatorColumn(field, value string) string {
	return normalize(field + "_" + value)
}

// Layout is the ordered input table for one model variant.
type Layout struct {
	Name   string
	Fields []Field
}

// Field looks up a declared field by name.
func (l Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns lists every column the encoder can produce, in emission order.
func (l Layout) Columns() []string {
	cols := make([]string, 0, len(l.Fields)*2)
	for _, f := range l.Fields {
		cols = append(cols, f.Columns()...)
	}
	return cols
}

// Defaults builds the input a freshly rendered form would submit.
func (l Layout) Defaults() RawInput {
	raw := RawInput{
		fields:      l.Fields,
		numeric:     make(map[string]float64),
		categorical: make(map[string]string),
	}
	for _, f := range l.Fields {
		if f.Kind == Numeric {
			raw.numeric[f.Name] = f.Default
		} else {
			raw.categorical[f.Name] = f.DefaultValue
		}
	}
	return raw
}
