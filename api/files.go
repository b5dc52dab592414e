package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/message"
)

// Request validation bounds.
const (
	MaxFileNameLength = 255
	MaxFileKeyLength  = 512
	MaxFileURLLength  = 2048

	DefaultMessagesLimit = 10
	MaxMessagesLimit     = 100
)

// StatusPending is reported when no file row exists yet for a polled id.
// The frontend polls status while the upload is still in flight, before
// the upload callback has created the row.
const StatusPending = "PENDING"

// FileStore is the slice of the file store the handler needs.
type FileStore interface {
	Create(ctx context.Context, key, name, url, userID string, status file.Status) (*file.File, error)
	ByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*file.File, error)
	ByKey(ctx context.Context, key, userID string) (*file.File, error)
	ListByUser(ctx context.Context, userID string) ([]*file.File, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

// MessageReader is the slice of the message store the handler needs.
type MessageReader interface {
	List(ctx context.Context, fileID uuid.UUID, cursor message.Cursor, limit int) (*message.Page, error)
}

// NamespaceDeleter removes a file's vectors when the file is deleted.
type NamespaceDeleter interface {
	DeleteNamespace(ctx context.Context, namespace uuid.UUID) error
}

// IngestTrigger starts background ingestion for a newly registered file.
type IngestTrigger func(fileID uuid.UUID)

// FileHandler handles document management endpoints.
type FileHandler struct {
	files    FileStore
	messages MessageReader
	index    NamespaceDeleter
	ingest   IngestTrigger
	logger   log.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(files FileStore, messages MessageReader, index NamespaceDeleter, ingest IngestTrigger, logger log.Logger) *FileHandler {
	return &FileHandler{files: files, messages: messages, index: index, ingest: ingest, logger: logger}
}

// RegisterRoutes registers file routes on the given mux.
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/files", requireUser(h.create))
	mux.HandleFunc("GET /api/files", requireUser(h.list))
	mux.HandleFunc("GET /api/files/{id}/status", requireUser(h.status))
	mux.HandleFunc("DELETE /api/files/{id}", requireUser(h.delete))
	mux.HandleFunc("GET /api/files/{id}/messages", requireUser(h.messagesPage))
}

type createFileRequest struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type fileResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Status    string    `json:"uploadStatus"`
	CreatedAt time.Time `json:"createdAt"`
}

func toFileResponse(f *file.File) fileResponse {
	return fileResponse{
		ID:        f.ID.String(),
		Key:       f.Key,
		Name:      f.Name,
		URL:       f.URL,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
	}
}

// create registers an uploaded document and kicks off ingestion.
//
// The request acknowledges an upload that already happened against blob
// storage: key identifies the blob, url is where to fetch it from.
// Re-posting the same key returns the existing file instead of creating a
// duplicate, so the frontend can safely retry the callback.
func (h *FileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if msg := validateCreateFile(req); msg != "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msg)
		return
	}

	uid := userID(r.Context())

	// Dedup by key: the upload callback can fire more than once.
	if existing, err := h.files.ByKey(r.Context(), req.Key, uid); err == nil {
		writeJSON(w, http.StatusOK, toFileResponse(existing))
		return
	} else if !errors.Is(err, file.ErrNotFound) {
		h.logger.Error("looking up file by key", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to register file")
		return
	}

	f, err := h.files.Create(r.Context(), req.Key, req.Name, req.URL, uid, file.StatusProcessing)
	if err != nil {
		if errors.Is(err, file.ErrDuplicateKey) {
			// Lost the race with a concurrent callback for the same key.
			if existing, lookupErr := h.files.ByKey(r.Context(), req.Key, uid); lookupErr == nil {
				writeJSON(w, http.StatusOK, toFileResponse(existing))
				return
			}
		}
		h.logger.Error("creating file", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to register file")
		return
	}

	h.ingest(f.ID)

	writeJSON(w, http.StatusCreated, toFileResponse(f))
}

func validateCreateFile(req createFileRequest) string {
	if req.Key == "" || len(req.Key) > MaxFileKeyLength {
		return "key is required and must be at most 512 characters"
	}
	if req.Name == "" || len(req.Name) > MaxFileNameLength {
		return "name is required and must be at most 255 characters"
	}
	if req.URL == "" || len(req.URL) > MaxFileURLLength {
		return "url is required and must be at most 2048 characters"
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "url must be a valid http(s) URL"
	}
	return ""
}

// list returns all of the caller's documents, newest first.
func (h *FileHandler) list(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListByUser(r.Context(), userID(r.Context()))
	if err != nil {
		h.logger.Error("listing files", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list files")
		return
	}

	resp := make([]fileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": resp})
}

type statusResponse struct {
	Status string `json:"status"`
}

// status reports ingestion progress for polling.
//
// An unknown id maps to PENDING rather than 404: the frontend starts
// polling as soon as the upload begins, which can be before the upload
// callback has created the row.
func (h *FileHandler) status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	f, err := h.files.ByIDForUser(r.Context(), id, userID(r.Context()))
	if err != nil {
		if errors.Is(err, file.ErrNotFound) {
			writeJSON(w, http.StatusOK, statusResponse{Status: StatusPending})
			return
		}
		h.logger.Error("loading file status", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: string(f.Status)})
}

// delete removes the document row and its vector namespace.
func (h *FileHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), id, userID(r.Context())); err != nil {
		if errors.Is(err, file.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "file not found")
			return
		}
		h.logger.Error("deleting file", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete file")
		return
	}

	// Chunks cascade with the row; this covers installations where the
	// vector table lives outside the same schema, and is harmless otherwise.
	if err := h.index.DeleteNamespace(r.Context(), id); err != nil {
		h.logger.Warn("deleting vector namespace", "file_id", id, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

type messageResponse struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	IsUserMessage bool      `json:"isUserMessage"`
	CreatedAt     time.Time `json:"createdAt"`
}

type messagesPageResponse struct {
	Messages   []messageResponse `json:"messages"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// messagesPage returns one cursor-paginated slice of the conversation,
// newest first. cursor is the opaque nextCursor value from the previous
// page's response.
func (h *FileHandler) messagesPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	// Ownership check before reading history.
	if _, err := h.files.ByIDForUser(r.Context(), id, userID(r.Context())); err != nil {
		if errors.Is(err, file.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "file not found")
			return
		}
		h.logger.Error("loading file", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load messages")
		return
	}

	var cursor message.Cursor
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := parseCursor(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "cursor is not a value returned by a previous page")
			return
		}
		cursor = parsed
	}

	limit := parseIntParam(r, "limit", DefaultMessagesLimit, 1, MaxMessagesLimit)

	page, err := h.messages.List(r.Context(), id, cursor, limit)
	if err != nil {
		h.logger.Error("listing messages", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load messages")
		return
	}

	resp := messagesPageResponse{Messages: make([]messageResponse, 0, len(page.Messages))}
	for _, m := range page.Messages {
		resp.Messages = append(resp.Messages, messageResponse{
			ID:            m.ID.String(),
			Text:          m.Text,
			IsUserMessage: m.IsUserMessage,
			CreatedAt:     m.CreatedAt,
		})
	}
	if !page.NextCursor.IsZero() {
		resp.NextCursor = formatCursor(page.NextCursor)
	}

	writeJSON(w, http.StatusOK, resp)
}

// formatCursor encodes a page cursor as "<createdAt>,<messageID>". The id
// half keeps equal-timestamp messages from being skipped at a page
// boundary; clients treat the whole value as opaque.
func formatCursor(c message.Cursor) string {
	return c.CreatedAt.Format(time.RFC3339Nano) + "," + c.ID.String()
}

// parseCursor decodes a cursor produced by formatCursor.
func parseCursor(raw string) (message.Cursor, error) {
	ts, idPart, found := strings.Cut(raw, ",")
	if !found {
		return message.Cursor{}, fmt.Errorf("cursor %q missing id part", raw)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return message.Cursor{}, fmt.Errorf("parsing cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return message.Cursor{}, fmt.Errorf("parsing cursor id: %w", err)
	}
	return message.Cursor{CreatedAt: createdAt, ID: id}, nil
}

// pathUUID parses the {id} path segment, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, minVal, maxVal int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
