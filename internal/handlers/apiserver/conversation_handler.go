package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"matri-go/internal/middleware"
	"matri-go/internal/models"
	"matri-go/internal/services"
)

// ConversationHandler handles HTTP requests for conversations and their
// messages.
type ConversationHandler struct {
	conversationService services.ConversationService
	messageService      services.MessageService
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(cs services.ConversationService, ms services.MessageService) *ConversationHandler {
	return &ConversationHandler{conversationService: cs, messageService: ms}
}

// GetOrCreateConversationPayload defines the expected JSON body for opening a
// conversation with another user.
type GetOrCreateConversationPayload struct {
	OtherUserID string `json:"otherUserId"`
}

// GetOrCreateConversationHandler handles POST /api/v1/conversations
func (h *ConversationHandler) GetOrCreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	var payload GetOrCreateConversationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.OtherUserID == "" {
		writeJSONError(w, "missing other user id (otherUserId)", http.StatusBadRequest)
		return
	}

	detail, err := h.conversationService.GetOrCreate(r.Context(), userID, payload.OtherUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationSelf):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error opening conversation between %s and %s: %v", userID, payload.OtherUserID, err)
			writeJSONError(w, "failed to open conversation", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, detail)
}

// ListConversationsHandler handles GET /api/v1/conversations
func (h *ConversationHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	page, limit := parsePagination(r)
	summaries, err := h.conversationService.ListForUser(r.Context(), userID, page, limit)
	if err != nil {
		log.Printf("Error listing conversations for user %s: %v", userID, err)
		writeJSONError(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	writeJSONResponse(w, http.StatusOK, summaries)
}

// SendMessagePayload defines the expected JSON body for sending a message.
type SendMessagePayload struct {
	Content string `json:"content"`
}

// SendMessageHandler handles POST /api/v1/conversations/{conversationID}/messages
func (h *ConversationHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["conversationID"]
	if conversationID == "" {
		writeJSONError(w, "missing conversation id", http.StatusBadRequest)
		return
	}

	var payload SendMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	message, err := h.messageService.SendMessage(r.Context(), userID, conversationID, payload.Content)
	if err != nil {
		var denied *services.PolicyDeniedError
		switch {
		case errors.As(err, &denied):
			writeJSONError(w, denied.Reason, http.StatusForbidden)
		case errors.Is(err, services.ErrEmptyContent):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrConversationNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotParticipant):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		default:
			log.Printf("Error sending message from %s in conversation %s: %v", userID, conversationID, err)
			writeJSONError(w, "failed to send message", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, message)
}

// ListMessagesHandler handles GET /api/v1/conversations/{conversationID}/messages
func (h *ConversationHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["conversationID"]
	if conversationID == "" {
		writeJSONError(w, "missing conversation id", http.StatusBadRequest)
		return
	}

	page, limit := parsePagination(r)
	markRead := r.URL.Query().Get("markRead") != "false"

	messagePage, err := h.messageService.ListMessages(r.Context(), userID, conversationID, page, limit, markRead)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotParticipant):
			writeJSONError(w, err.Error(), http.StatusForbidden)
		default:
			log.Printf("Error listing messages for %s in conversation %s: %v", userID, conversationID, err)
			writeJSONError(w, "failed to list messages", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, messagePage)
}

// parsePagination reads page and limit query parameters. Values outside the
// accepted range are clamped by the service layer.
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
