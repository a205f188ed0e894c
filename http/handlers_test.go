package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"glaucomaml/features"
	"glaucomaml/predict"
)

type fakeClassifier struct {
	out []any
	err error
}

func (f *fakeClassifier) Predict(rows [][]float64) ([]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeClassifier) FeatureNames() []string { return nil }

func (f *fakeClassifier) Labels() []string { return []string{"No Glaucoma", "Glaucoma"} }

func newTestServer(t *testing.T, model *fakeClassifier) *Server {
	t.Helper()
	variant, err := predict.LookupVariant(predict.VariantGlaucomaDetection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := predict.NewService(variant, model, predict.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewServer(DefaultServerConfig(), svc, nil)
}

func defaultBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(features.GlaucomaDetectionLayout().Defaults().Values())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func postJSON(handler http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodePayload(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return payload
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(NewHandlers(nil, nil, nil).handleHealth)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"ok"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestHandlePredictJSON(t *testing.T) {
	srv := newTestServer(t, &fakeClassifier{out: []any{0}})

	w := postJSON(srv.Handler(), defaultBody(t))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}

	payload := decodePayload(t, w)
	if payload["label"] != "No Glaucoma" {
		t.Fatalf("unexpected label: %v", payload["label"])
	}
	if payload["interpretation"] != predict.NegativeSentence {
		t.Fatalf("unexpected interpretation: %v", payload["interpretation"])
	}
	if payload["code"].(float64) != 0 {
		t.Fatalf("unexpected code: %v", payload["code"])
	}
}

func TestHandlePredictForm(t *testing.T) {
	srv := newTestServer(t, &fakeClassifier{out: []any{"Glaucoma"}})

	form := url.Values{}
	for name, v := range features.GlaucomaDetectionLayout().Defaults().Values() {
		switch x := v.(type) {
		case float64:
			form.Set(name, strconv.FormatFloat(x, 'f', -1, 64))
		case string:
			form.Set(name, x)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if payload := decodePayload(t, w); payload["interpretation"] != predict.PositiveSentence {
		t.Fatalf("unexpected interpretation: %v", payload["interpretation"])
	}
}

func TestHandlePredictRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t, &fakeClassifier{out: []any{0}})

	values := features.GlaucomaDetectionLayout().Defaults().Values()
	values[features.FieldAge] = 200
	values[features.FieldGender] = "Other"
	body, _ := json.Marshal(values)

	w := postJSON(srv.Handler(), body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	payload := decodePayload(t, w)
	fields, ok := payload["fields"].([]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("expected two field errors, got %v", payload["fields"])
	}

	w = postJSON(srv.Handler(), []byte("{not json"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %d", w.Code)
	}
}

func TestHandlePredictInferenceErrorThenRecovers(t *testing.T) {
	model := &fakeClassifier{err: errors.New("model is not fitted yet")}
	srv := newTestServer(t, model)

	w := postJSON(srv.Handler(), defaultBody(t))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	msg, _ := decodePayload(t, w)["error"].(string)
	if !strings.HasPrefix(msg, "Error making prediction: ") {
		t.Fatalf("unexpected error message: %q", msg)
	}

	model.err = nil
	model.out = []any{1}
	w = postJSON(srv.Handler(), defaultBody(t))
	if w.Code != http.StatusOK {
		t.Fatalf("expected the next request to succeed, got %d", w.Code)
	}
	if payload := decodePayload(t, w); payload["label"] != "Glaucoma" {
		t.Fatalf("unexpected label: %v", payload["label"])
	}
}

func TestHandleForm(t *testing.T) {
	srv := newTestServer(t, &fakeClassifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/form", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodePayload(t, w)
	if payload["variant"] != "glaucoma_detection" {
		t.Fatalf("unexpected variant: %v", payload["variant"])
	}
	fields := payload["fields"].([]interface{})
	if len(fields) != len(features.GlaucomaDetectionLayout().Fields) {
		t.Fatalf("unexpected field count: %d", len(fields))
	}
	age := fields[0].(map[string]interface{})
	if age["name"] != features.FieldAge || age["min"].(float64) != 20 || age["max"].(float64) != 90 {
		t.Fatalf("unexpected age field: %v", age)
	}
}

func TestHandleSchema(t *testing.T) {
	srv := newTestServer(t, &fakeClassifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	payload := decodePayload(t, w)
	if payload["aligned"] != true {
		t.Fatalf("expected aligned schema, got %v", payload)
	}
	columns := payload["columns"].([]interface{})
	if len(columns) != len(features.GlaucomaDetectionLayout().Columns()) {
		t.Fatalf("unexpected columns: %v", columns)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := Chain(RecoveryMiddleware(nil), LoggerMiddleware(nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
