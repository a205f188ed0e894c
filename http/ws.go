package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"glaucomaml/features"
	"glaucomaml/logger"
	"glaucomaml/predict"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 64 << 10
)

// checkOrigin admits non-browser clients (no Origin header), the allowed
// origins and the serving host.
func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || originAllowed(origins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// socketReply is one answer on the predict socket: a prediction or the
// error a POST would have produced.
type socketReply struct {
	Label          string                `json:"label,omitempty"`
	Interpretation string                `json:"interpretation,omitempty"`
	Code           *int                  `json:"code,omitempty"`
	Input          map[string]any        `json:"input,omitempty"`
	Error          string                `json:"error,omitempty"`
	Fields         []features.FieldError `json:"fields,omitempty"`
}

// handlePredictSocket serves a sequence of predictions over one connection.
// Each text message is a JSON object of field -> value; each reply is the
// prediction or the error a POST would have produced.
func (h *Handlers) handlePredictSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logger.C(r.Context()).Info("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := logger.C(r.Context())
	log.Info("websocket connected")

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			log.Info("websocket disconnected")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := h.answer(r, msg)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn("websocket write error", zap.Error(err))
			return
		}
	}
}

func (h *Handlers) answer(r *http.Request, msg []byte) socketReply {
	res, raw, err := h.predictMessage(r, msg)
	if err != nil {
		status, body := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.C(r.Context()).Error("websocket prediction failed", zap.Error(err))
		}
		return socketReply{Error: body.Error, Fields: body.Fields}
	}
	return socketReply{
		Label:          res.Label,
		Interpretation: res.Interpretation,
		Code:           res.Code,
		Input:          raw.Values(),
	}
}

func (h *Handlers) predictMessage(r *http.Request, msg []byte) (predict.Result, features.RawInput, error) {
	values, err := parseValues(msg)
	if err != nil {
		return predict.Result{}, features.RawInput{}, err
	}
	raw, err := h.predictor.Layout().NewInput(values)
	if err != nil {
		return predict.Result{}, features.RawInput{}, err
	}
	res, err := h.predictor.Predict(r.Context(), raw)
	return res, raw, err
}

// pingLoop keeps idle connections alive. Control frames may be written
// concurrently with the read loop's data frames.
func (h *Handlers) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				h.log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}
