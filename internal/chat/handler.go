package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/devcoach-ai/devcoach/internal/api"
)

// Handler exposes the chat service over HTTP.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) bindChatRequest(r *http.Request) (ChatRequest, error) {
	req := ChatRequest{
		Message:  r.URL.Query().Get("message"),
		MemoryID: r.URL.Query().Get("memoryId"),
	}
	if err := h.validate.Struct(req); err != nil {
		return req, api.NewValidationError(err.Error())
	}
	return req, nil
}

// Stream handles GET /ai/chat: an SSE stream of response fragments.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindChatRequest(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if req.MemoryID == "" {
		req.MemoryID = "default"
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(fragment string) error {
		if _, err := w.Write([]byte("data: " + fragment + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// Headers are already sent; a mid-stream failure can only be
	// logged and the connection closed.
	if err := h.svc.ChatStream(r.Context(), req.MemoryID, req.Message, emit); err != nil {
		slog.Error("chat stream failed", "memory_id", req.MemoryID, "error", err)
	}
}

// Sync handles GET /ai/chat/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindChatRequest(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	content, err := h.svc.Chat(r.Context(), req.Message)
	if err != nil {
		slog.Error("sync chat failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, ChatResponse{Content: content})
}

// Report handles GET /ai/chat/report. It always answers 200 with a
// well-formed report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindChatRequest(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, h.svc.ChatForReport(r.Context(), req.Message))
}

// RAG handles GET /ai/chat/rag.
func (h *Handler) RAG(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindChatRequest(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp, err := h.svc.ChatWithRAG(r.Context(), req.Message)
	if err != nil {
		slog.Error("rag chat failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

// Tools handles GET /ai/chat/tools.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindChatRequest(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp, err := h.svc.ChatWithTools(r.Context(), req.Message)
	if err != nil {
		slog.Error("tools chat failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

// ListMemory handles GET /ai/memory.
func (h *Handler) ListMemory(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.ListConversations(r.Context())
	if err != nil {
		slog.Error("listing conversations", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	api.JSON(w, http.StatusOK, MemoryListResponse{Conversations: ids})
}

// ClearMemory handles DELETE /ai/memory/{id}.
func (h *Handler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.svc.ClearConversation(r.Context(), id); err != nil {
		slog.Error("clearing conversation", "memory_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONMessage(w, http.StatusOK, "conversation cleared")
}

// ReloadDocuments handles POST /ai/documents/reload.
func (h *Handler) ReloadDocuments(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.svc.ReloadDocuments(r.Context())
	if err != nil {
		slog.Error("reloading documents", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, ReloadResponse{Chunks: chunks})
}
