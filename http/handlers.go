package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"glaucomaml/features"
	"glaucomaml/logger"
	"glaucomaml/predict"
)

// Predictor is the prediction service the handlers serve.
type Predictor interface {
	Layout() features.Layout
	Schema() features.Schema
	Alignment() features.AlignmentReport
	Predict(ctx context.Context, raw features.RawInput) (predict.Result, error)
}

// Handlers holds the dependencies of every route. It is read-only after
// NewHandlers.
type Handlers struct {
	predictor Predictor
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

// NewHandlers binds the routes to predictor. Browser websocket handshakes
// are accepted from origins and from the serving host itself.
func NewHandlers(predictor Predictor, log *zap.Logger, origins []string) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		predictor: predictor,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/form", h.handleForm)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
}

type formField struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Default any      `json:"default"`
	Values  []string `json:"values,omitempty"`
}

type predictResponse struct {
	predict.Result
	Input map[string]any `json:"input"`
}

type errorResponse struct {
	Error     string                `json:"error"`
	Fields    []features.FieldError `json:"fields,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// handleForm describes the inputs a front end has to render.
func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	layout := h.predictor.Layout()
	fields := make([]formField, 0, len(layout.Fields))
	for _, f := range layout.Fields {
		ff := formField{Name: f.Name, Kind: f.Kind.String()}
		if f.Kind == features.Numeric {
			lo, hi, step := f.Min, f.Max, f.Step
			ff.Min, ff.Max, ff.Step = &lo, &hi, &step
			ff.Default = f.Default
		} else {
			ff.Values = f.Values
			ff.Default = f.DefaultValue
		}
		fields = append(fields, ff)
	}
	respondJSON(w, map[string]interface{}{
		"variant": layout.Name,
		"fields":  fields,
	})
}

func (h *Handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	report := h.predictor.Alignment()
	respondJSON(w, map[string]interface{}{
		"columns":   h.predictor.Schema().Columns(),
		"aligned":   report.Aligned(),
		"alignment": report,
	})
}

// handlePredict accepts a JSON object of field -> value or a url-encoded
// form post.
func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var (
		raw features.RawInput
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err = r.ParseForm(); err != nil {
			writeRequestError(w, r, err)
			return
		}
		raw, err = h.predictor.Layout().ParseForm(r.PostForm)
	default:
		var values map[string]any
		values, err = decodeValues(r)
		if err != nil {
			writeRequestError(w, r, err)
			return
		}
		raw, err = h.predictor.Layout().NewInput(values)
	}
	if err != nil {
		writeRequestError(w, r, err)
		return
	}

	res, err := h.predictor.Predict(r.Context(), raw)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	respondJSON(w, predictResponse{Result: res, Input: raw.Values()})
}

func decodeValues(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// parseValues is decodeValues for a single websocket message.
func parseValues(msg []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return values, nil
}

// errorStatus maps an error to its response status and body.
func errorStatus(err error) (int, errorResponse) {
	var (
		verr     *features.ValidationError
		ierr     *predict.InferenceError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields}
	case errors.As(err, &ierr):
		return http.StatusInternalServerError, errorResponse{Error: ierr.Error()}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"}
	default:
		return http.StatusBadRequest, errorResponse{Error: "invalid request body"}
	}
}

func writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	body.RequestID = GetRequestID(r.Context())
	if status >= http.StatusInternalServerError {
		logger.C(r.Context()).Error("request failed", zap.Error(err))
	} else {
		logger.C(r.Context()).Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode JSON", zap.Error(err))
	}
}
