package features

// Input names shared by the glaucoma variants. They double as column names
// (numeric) and indicator prefixes (categorical), so they must match the
// headers of the training data exactly.
const (
	FieldAge              = "Age"
	FieldIOP              = "Intraocular Pressure (IOP)"
	FieldCDR              = "Cup-to-Disc Ratio (CDR)"
	FieldPachymetry       = "Pachymetry"
	FieldVisualFieldIndex = "Visual Field Index"
	FieldGender           = "Gender"
	FieldVisualAcuity     = "Visual Acuity Measurements"
	FieldFamilyHistory    = "Family History"
	FieldMedicalHistory   = "Medical History"
	FieldCataractStatus   = "Cataract Status"
	FieldAngleClosure     = "Angle Closure Status"
	FieldDiagnosis        = "Diagnosis"
)

// GlaucomaTypeLayout is the input table of the multi-class glaucoma type model.
func GlaucomaTypeLayout() Layout {
	return Layout{
		Name: "glaucoma_type",
		Fields: []Field{
			NumericField(FieldAge, 20, 90, 50, 1),
			NumericField(FieldIOP, 5.0, 40.0, 15.0, 0.1),
			NumericField(FieldCDR, 0.1, 1.0, 0.5, 0.01),
			NumericField(FieldPachymetry, 300.0, 700.0, 520.0, 1.0),
			CategoricalField(FieldGender, "Male", "Female"),
			CategoricalField(FieldVisualAcuity, "Normal", "Reduced"),
			CategoricalField(FieldFamilyHistory, "Yes", "No"),
			CategoricalField(FieldMedicalHistory, "None", "Diabetes", "Hypertension"),
			CategoricalField(FieldCataractStatus, "Yes", "No"),
			CategoricalField(FieldAngleClosure, "Open", "Closed"),
			CategoricalField(FieldDiagnosis, "Suspect", "Confirmed"),
		},
	}
}

// GlaucomaDetectionLayout is the input table of the binary glaucoma model.
func GlaucomaDetectionLayout() Layout {
	return Layout{
		Name: "glaucoma_detection",
		Fields: []Field{
			NumericField(FieldAge, 20, 90, 50, 1),
			NumericField(FieldIOP, 5.0, 40.0, 15.0, 0.1),
			NumericField(FieldCDR, 0.1, 1.0, 0.5, 0.01),
			NumericField(FieldVisualFieldIndex, 0, 100, 90, 1),
			CategoricalField(FieldGender, "Male", "Female"),
			CategoricalField(FieldFamilyHistory, "Yes", "No"),
			CategoricalField(FieldMedicalHistory, "None", "Diabetes", "Hypertension"),
			CategoricalField(FieldVisualAcuity, "Normal", "Reduced"),
		},
	}
}
