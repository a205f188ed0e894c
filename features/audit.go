package features

// AlignmentReport compares what a layout can produce with what a schema
// expects. The encoder tolerates every mismatch listed here by filling or
// dropping columns, so the report is the only place drift becomes visible.
type AlignmentReport struct {
	// Unreachable schema columns are never produced and always encode as 0.
	Unreachable []string `json:"unreachable,omitempty"`
	// Dropped layout columns never reach the model.
	Dropped []string `json:"dropped,omitempty"`
	// Uncovered categorical fields have no indicator column in the schema,
	// so the user's choice cannot influence the prediction.
	Uncovered []string `json:"uncovered,omitempty"`
	// Partial categorical fields have only some indicator columns in the
	// schema; choosing a missing level looks like "no level" to the model.
	Partial []string `json:"partial,omitempty"`
}

// Aligned is true when layout columns and schema columns are the same set.
func (r AlignmentReport) Aligned() bool {
	return len(r.Unreachable) == 0 && len(r.Dropped) == 0
}

// Audit statically checks a layout against a schema.
func Audit(layout Layout, schema Schema) AlignmentReport {
	var report AlignmentReport
	produced := make(map[string]bool)
	for _, f := range layout.Fields {
		present := 0
		cols := f.Columns()
		for _, c := range cols {
			produced[c] = true
			if schema.Has(c) {
				present++
			} else {
				report.Dropped = append(report.Dropped, c)
			}
		}
		if f.Kind != Categorical {
			continue
		}
		switch {
		case present == 0:
			report.Uncovered = append(report.Uncovered, f.Name)
		case present < len(cols):
			report.Partial = append(report.Partial, f.Name)
		}
	}
	for _, c := range schema.Columns() {
		if !produced[c] {
			report.Unreachable = append(report.Unreachable, c)
		}
	}
	return report
}
