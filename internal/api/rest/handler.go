package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"vetml/internal/api/envelope"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

const defaultMaxBody = 1 << 20

// PredictHandler serves one-shot predictions and report lookups over HTTP.
// Bodies are the same JSON messages the websocket accepts.
type PredictHandler struct {
	dispatcher *envelope.Dispatcher
	maxBody    int64
	log        *logger.Logger
}

// NewPredictHandler creates the handler. maxBody <= 0 uses 1 MiB.
func NewPredictHandler(dispatcher *envelope.Dispatcher, maxBody int64, log *logger.Logger) *PredictHandler {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &PredictHandler{
		dispatcher: dispatcher,
		maxBody:    maxBody,
		log:        log.Component("rest"),
	}
}

func (h *PredictHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, envelope.ErrorResponse{Error: "Method not allowed"})
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx := errors.WithRequestID(r.Context(), requestID)
	w.Header().Set("X-Request-ID", requestID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, envelope.ErrorResponse{Error: "Request body too large"})
		return
	}

	reply := h.dispatcher.Dispatch(ctx, body)
	writeJSON(w, statusFor(reply.Err), reply.Body)
}

// statusFor maps a dispatch error to an HTTP status
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var de *errors.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Code {
	case errors.CodeMalformedMessage, errors.CodeUnsupportedSpecies, errors.CodeUnregisteredModel:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
