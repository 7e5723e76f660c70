package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/middleware"
	"github.com/dec-learning/platform-backend/services/chatbot"
	"github.com/dec-learning/platform-backend/utils"
)

// ChatbotHandler handles chatbot HTTP requests
type ChatbotHandler struct {
	service *chatbot.Service
	logger  *zap.Logger
}

// NewChatbotHandler creates a new ChatbotHandler
func NewChatbotHandler(service *chatbot.Service, logger *zap.Logger) *ChatbotHandler {
	return &ChatbotHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /v1/chatbot/chat
func (h *ChatbotHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Chat(r.Context(), *req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, resp)
}

// HandleChatStream handles POST /v1/chatbot/stream
//
// The response is a server-sent event stream of the form
// `data: {"content": "..."}` per fragment, terminated by
// `data: {"done": true}`. Errors after the stream has started are
// reported in-band as `data: {"error": "..."}`.
func (h *ChatbotHandler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming")
		_ = utils.WriteInternalServerError(w, "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.service.ChatStream(r.Context(), *req, func(content string) error {
		if writeErr := writeSSE(w, map[string]interface{}{"content": content}); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		requestID := middleware.GetRequestIDFromContext(r.Context())
		h.logger.Error("chat stream failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = writeSSE(w, map[string]interface{}{"error": "failed to generate a response"})
		flusher.Flush()
		return
	}

	_ = writeSSE(w, map[string]interface{}{"done": true})
	flusher.Flush()
}

func (h *ChatbotHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*chatbot.ChatRequest, bool) {
	var req chatbot.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return nil, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return nil, false
	}
	return &req, true
}

// writeSSE writes a single server-sent event data frame.
func writeSSE(w http.ResponseWriter, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(append(append([]byte("data: "), data...), '\n', '\n'))
	return err
}
