package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
	"github.com/Yogeshviper/azure-ai-operator/internal/worker"
)

const (
	errCodeNotFound            = "NOT_FOUND"
	errCodeIntentParse         = "INTENT_PARSE_ERROR"
	errCodeProvisioningTimeout = "PROVISIONING_TIMEOUT"
	errCodeSessionBusy         = "SESSION_BUSY"
	errCodeShuttingDown        = "SHUTTING_DOWN"
	errCodeCancelled           = "CANCELLED"
)

// statusClientClosedRequest is the nginx status for a caller that went away.
const statusClientClosedRequest = 499

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type postMessageRequest struct {
	Message string `json:"message"`
}

type postMessageResponse struct {
	SessionID string        `json:"session_id"`
	TurnID    string        `json:"turn_id"`
	Action    domain.Action `json:"action"`
	Message   string        `json:"message"`
}

type listTurnsResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []domain.Turn `json:"turns"`
}

// StartSession handles POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, greeting, err := h.svc.StartSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: session.ID, Message: greeting})
}

// PostMessage handles POST /sessions/{id}/messages
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	var (
		reply   domain.Reply
		turnErr error
	)
	// A started turn runs to completion even if the caller goes away; the
	// provisioning timeout is its only deadline.
	run := func(ctx context.Context) {
		reply, turnErr = h.svc.HandleMessage(context.WithoutCancel(ctx), sessionID, req.Message)
	}
	if h.pool == nil {
		run(r.Context())
	} else if err := h.pool.Submit(r.Context(), sessionID, run); err != nil {
		writeTurnError(w, err)
		return
	}
	if turnErr != nil {
		writeTurnError(w, turnErr)
		return
	}

	writeJSON(w, http.StatusOK, postMessageResponse{
		SessionID: sessionID,
		TurnID:    reply.TurnID,
		Action:    reply.Action,
		Message:   reply.Message,
	})
}

// ListTurns handles GET /sessions/{id}/turns
func (h *Handler) ListTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	turns, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listTurnsResponse{SessionID: sessionID, Turns: turns})
}

// statusFor maps a failed turn onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errCodeNotFound
	case errors.Is(err, domain.ErrIntentParse):
		return http.StatusBadGateway, errCodeIntentParse
	case errors.Is(err, domain.ErrProvisioningTimeout):
		return http.StatusGatewayTimeout, errCodeProvisioningTimeout
	case errors.Is(err, worker.ErrQueueFull):
		return http.StatusServiceUnavailable, errCodeSessionBusy
	case errors.Is(err, worker.ErrStopped):
		return http.StatusServiceUnavailable, errCodeShuttingDown
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, errCodeCancelled
	default:
		return http.StatusInternalServerError, ""
	}
}

func writeTurnError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if code == "" {
		writeError(w, status, err.Error())
		return
	}
	writeErrorWithCode(w, status, err.Error(), code)
}
