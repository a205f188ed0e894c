package ml

// Classifier is a loaded model artifact. Implementations are immutable after
// loading and safe for concurrent use.
type Classifier interface {
	// Predict classifies each row. An element is either a string class
	// label or an int class code to be decoded through Labels.
	Predict(rows [][]float64) ([]any, error)
	// FeatureNames is the ordered column list the model was fit on, or nil
	// when the artifact does not carry one.
	FeatureNames() []string
	// Labels maps class codes to display names, or nil.
	Labels() []string
}

// WidthChecker is implemented by classifiers that can tell up front whether
// rows of n columns are readable.
type WidthChecker interface {
	CheckWidth(n int) error
}
