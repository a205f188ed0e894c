package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"glaucomaml/features"
	"glaucomaml/predict"
)

func TestPredictSocket(t *testing.T) {
	srv := newTestServer(t, &fakeClassifier{out: []any{1}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/predict"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id on the handshake")
	}

	if err := conn.WriteMessage(websocket.TextMessage, defaultBody(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply socketReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Label != "Glaucoma" || reply.Interpretation != predict.PositiveSentence {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if reply.Code == nil || *reply.Code != 1 {
		t.Fatalf("expected code 1, got %v", reply.Code)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"Age": 5}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply = socketReply{}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Error == "" || reply.Label != "" {
		t.Fatalf("expected a validation error, got %+v", reply)
	}
	found := false
	for _, f := range reply.Fields {
		if f.Field == features.FieldAge {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an Age field error, got %+v", reply.Fields)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply = socketReply{}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Error != "invalid request body" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestPredictSocketChecksOrigin(t *testing.T) {
	variant, err := predict.LookupVariant(predict.VariantGlaucomaDetection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := predict.NewService(variant, &fakeClassifier{out: []any{0}}, predict.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config := DefaultServerConfig()
	config.AllowedOrigins = []string{"https://clinic.example"}
	ts := httptest.NewServer(NewServer(config, svc, nil).Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/predict"

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://clinic.example"}})
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()

	conn, _, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": {ts.URL}})
	if err != nil {
		t.Fatalf("same-host origin rejected: %v", err)
	}
	conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://other.example"}})
	if err == nil {
		t.Fatal("expected the handshake from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}
