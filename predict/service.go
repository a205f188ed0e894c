package predict

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"glaucomaml/features"
	"glaucomaml/logger"
	"glaucomaml/ml"
)

// Alignment policies applied when the service is built.
const (
	AlignmentOff    = "off"
	AlignmentWarn   = "warn"
	AlignmentStrict = "strict"
)

// Options tunes a Service.
type Options struct {
	// CacheSize bounds the memo of encoded rows to results; 0 disables it.
	CacheSize int
	Alignment string
	Logger    *zap.Logger
}

// Service owns the loaded model for the whole process and serves one
// encode-then-predict chain per call. Nothing in it is mutated after
// NewService returns.
type Service struct {
	variant Variant
	model   ml.Classifier
	schema  features.Schema
	report  features.AlignmentReport
	adapter *Adapter
	cache   *lru.Cache[string, Result]
	log     *zap.Logger
}

// MisalignmentError reports a schema the strict policy refuses to serve.
type MisalignmentError struct {
	Report features.AlignmentReport
}

func (e *MisalignmentError) Error() string {
	var parts []string
	if len(e.Report.Unreachable) > 0 {
		parts = append(parts, "schema columns never produced by the encoder: "+strings.Join(e.Report.Unreachable, ", "))
	}
	if len(e.Report.Uncovered) > 0 {
		parts = append(parts, "inputs with no column in the schema: "+strings.Join(e.Report.Uncovered, ", "))
	}
	if len(e.Report.Partial) > 0 {
		parts = append(parts, "inputs with missing indicator columns: "+strings.Join(e.Report.Partial, ", "))
	}
	return "model schema does not match the input form: " + strings.Join(parts, "; ")
}

// NewService binds a variant to a loaded model. The model's own feature
// names are the schema; without them the layout's column order is assumed.
func NewService(variant Variant, model ml.Classifier, opts Options) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("variant", variant.Name))

	columns := model.FeatureNames()
	if len(columns) == 0 {
		log.Warn("model artifact carries no feature names, assuming the encoder column order")
		columns = variant.Layout.Columns()
	}
	schema, err := features.NewSchema(columns)
	if err != nil {
		return nil, fmt.Errorf("model schema: %w", err)
	}
	if wc, ok := model.(ml.WidthChecker); ok {
		if err := wc.CheckWidth(schema.Len()); err != nil {
			return nil, fmt.Errorf("model does not fit its %d-column schema: %w", schema.Len(), err)
		}
	}

	s := &Service{
		variant: variant,
		model:   model,
		schema:  schema,
		adapter: NewAdapter(variant.Contract),
		log:     log,
	}

	switch opts.Alignment {
	case AlignmentOff:
	case AlignmentStrict:
		s.report = features.Audit(variant.Layout, schema)
		if !s.report.Aligned() || len(s.report.Uncovered) > 0 || len(s.report.Partial) > 0 {
			return nil, &MisalignmentError{Report: s.report}
		}
	default:
		s.report = features.Audit(variant.Layout, schema)
		s.logReport()
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("prediction cache: %w", err)
		}
		s.cache = cache
	}
	log.Info("prediction service ready",
		zap.Int("columns", schema.Len()),
		zap.Int("cache_size", opts.CacheSize),
	)
	return s, nil
}

func (s *Service) logReport() {
	r := s.report
	if len(r.Unreachable) > 0 {
		s.log.Warn("schema columns are never produced and will always be 0", zap.Strings("columns", r.Unreachable))
	}
	if len(r.Dropped) > 0 {
		s.log.Warn("encoder columns are not in the schema and will be dropped", zap.Strings("columns", r.Dropped))
	}
	if len(r.Uncovered) > 0 {
		s.log.Warn("inputs cannot influence the prediction", zap.Strings("fields", r.Uncovered))
	}
	if len(r.Partial) > 0 {
		s.log.Warn("inputs have levels without a schema column", zap.Strings("fields", r.Partial))
	}
}

func (s *Service) Variant() Variant {
	return s.variant
}

func (s *Service) Layout() features.Layout {
	return s.variant.Layout
}

func (s *Service) Schema() features.Schema {
	return s.schema
}

func (s *Service) Alignment() features.AlignmentReport {
	return s.report
}

// Predict encodes raw onto the model schema and classifies it. Errors are
// *InferenceError.
func (s *Service) Predict(ctx context.Context, raw features.RawInput) (Result, error) {
	log := logger.C(ctx)
	v := features.Encode(raw, s.schema)
	if len(v.Defaulted) > 0 {
		log.Debug("schema columns filled with 0", zap.Strings("columns", v.Defaulted))
	}

	key := rowKey(v.Values)
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			log.Debug("prediction served from cache", zap.String("label", res.Label))
			return res, nil
		}
	}

	res, err := s.adapter.Predict(s.model, v)
	if err != nil {
		log.Error("prediction failed", zap.Error(err))
		return Result{}, err
	}
	if s.cache != nil {
		s.cache.Add(key, res)
	}
	log.Info("prediction", zap.String("label", res.Label))
	return res, nil
}

// rowKey is the exact bit pattern of a row.
func rowKey(values []float64) string {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return string(buf)
}
