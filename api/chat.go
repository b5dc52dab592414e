package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/paperspeak/paperspeak/internal/chat"
	"github.com/paperspeak/paperspeak/internal/log"
)

// MaxQuestionLength bounds a single chat message.
const MaxQuestionLength = 8000

// Converser runs one chat turn, streaming chunks through the callback.
type Converser interface {
	Converse(ctx context.Context, fileID uuid.UUID, userID, question string, stream chat.StreamFunc) (*chat.Reply, error)
}

// ChatHandler handles the streaming chat endpoint.
//
// Endpoint:
//   - POST /api/files/{id}/messages/stream - Streaming chat (SSE)
type ChatHandler struct {
	chat   Converser
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat Converser, logger log.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/files/{id}/messages/stream", requireUser(h.handleStream))
}

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Response  string `json:"response"`
	MessageID string `json:"messageId"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type streamRequest struct {
	Message string `json:"message"`
}

// handleStream runs one chat turn over SSE.
//
// Request body: {"message": "..."}
// Response: Server-Sent Events stream
//
// Event types:
//   - chunk: Partial text chunk {"text": "..."}
//   - done:  Final response {"response": "...", "messageId": "..."}
//   - error: Error occurred {"code": "...", "message": "..."}
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		writeError(w, http.StatusBadRequest, "MISSING_MESSAGE", "message is required")
		return
	}
	if len(question) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "MESSAGE_TOO_LONG",
			fmt.Sprintf("message must be at most %d bytes", MaxQuestionLength))
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	h.logger.Info("SSE stream started", "file_id", id)

	reply, err := h.chat.Converse(ctx, id, userID(ctx), question,
		func(_ context.Context, chunk string) error {
			// Stop generating when the client goes away.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if chunk != "" {
				h.writeSSEChunk(w, flusher, chunk)
			}
			return nil
		})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNotFound):
			h.writeSSEError(w, flusher, "NOT_FOUND", "file not found")
		case ctx.Err() != nil:
			h.logger.Info("client disconnected", "file_id", id)
		default:
			h.logger.Error("stream failed", "file_id", id, "error", err)
			h.writeSSEError(w, flusher, "STREAM_ERROR", "chat turn failed")
		}
		return
	}

	h.writeSSEDone(w, flusher, reply.Text, reply.AssistantMessage.ID.String())
	h.logger.Info("SSE stream completed",
		"file_id", id,
		"responseLen", len(reply.Text))
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, response, messageID string) {
	data, _ := json.Marshal(SSEDoneData{Response: response, MessageID: messageID})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
