package features

// Vector is a single encoded row, ordered exactly like the schema it was
// projected onto.
type Vector struct {
	Columns []string
	Values  []float64

	// Defaulted lists schema columns the encoder did not produce; they hold 0.
	Defaulted []string
	// Dropped lists produced columns the schema does not know.
	Dropped []string
}

// Row returns the values as a model input row.
func (v Vector) Row() []float64 {
	return append([]float64(nil), v.Values...)
}

// Get returns the value of a column.
func (v Vector) Get(column string) (float64, bool) {
	column = normalize(column)
	for i, c := range v.Columns {
		if c == column {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Map returns column -> value, losing order.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.Columns))
	for i, c := range v.Columns {
		m[c] = v.Values[i]
	}
	return m
}

type cell struct {
	column string
	value  float64
}

// expand copies numeric fields and one-hot expands categorical ones, in
// layout order.
func expand(raw RawInput) []cell {
	cells := make([]cell, 0, len(raw.fields)*2)
	for _, f := range raw.fields {
		switch f.Kind {
		case Numeric:
			cells = append(cells, cell{column: normalize(f.Name), value: raw.numeric[f.Name]})
		case Categorical:
			chosen := raw.categorical[f.Name]
			for _, v := range f.Values {
				indicator := 0.0
				if v == chosen {
					indicator = 1
				}
				cells = append(cells, cell{column: IndicatorColumn(f.Name, v), value: indicator})
			}
		}
	}
	return cells
}

// Encode builds the feature row for raw and reindexes it onto schema: every
// schema column appears in schema order, missing ones as 0, and produced
// columns outside the schema are discarded. It never fails.
func Encode(raw RawInput, schema Schema) Vector {
	cells := expand(raw)
	produced := make(map[string]float64, len(cells))
	for _, c := range cells {
		produced[c.column] = c.value
	}

	v := Vector{
		Columns: schema.Columns(),
		Values:  make([]float64, schema.Len()),
	}
	for i, col := range v.Columns {
		value, ok := produced[col]
		if !ok {
			v.Defaulted = append(v.Defaulted, col)
			continue
		}
		v.Values[i] = value
	}
	for _, c := range cells {
		if !schema.Has(c.column) {
			v.Dropped = append(v.Dropped, c.column)
		}
	}
	return v
}
