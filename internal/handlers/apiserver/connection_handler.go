package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"matri-go/internal/middleware"
	"matri-go/internal/models"
	"matri-go/internal/services"
)

// ConnectionHandler handles HTTP requests related to connection requests.
type ConnectionHandler struct {
	connectionService services.ConnectionService
}

// NewConnectionHandler creates a new ConnectionHandler.
func NewConnectionHandler(cs services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: cs}
}

// SendConnectionRequestPayload defines the expected JSON body for sending a
// connection request.
type SendConnectionRequestPayload struct {
	RequestedID string `json:"requestedId"`
}

// ConnectionRequestResponse wraps a request record together with whether the
// call created it.
type ConnectionRequestResponse struct {
	Request *models.ConnectionRequest `json:"request"`
	Created bool                      `json:"created"`
}

// SendRequestHandler handles POST /api/v1/connections/requests
func (h *ConnectionHandler) SendRequestHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	var payload SendConnectionRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.RequestedID == "" {
		writeJSONError(w, "missing requested user id (requestedId)", http.StatusBadRequest)
		return
	}

	request, created, err := h.connectionService.Request(r.Context(), requesterID, payload.RequestedID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConnectionSelf), errors.Is(err, services.ErrConnectionUserAbsent):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrConnectionRejected), errors.Is(err, services.ErrAcceptTheirsInstead):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("Error sending connection request from %s to %s: %v", requesterID, payload.RequestedID, err)
			writeJSONError(w, "failed to send connection request", http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, ConnectionRequestResponse{Request: request, Created: created})
}

// AcceptRequestHandler handles POST /api/v1/connections/requests/{requesterID}/accept
func (h *ConnectionHandler) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.settleRequest(w, r, h.connectionService.Accept, "accepting")
}

// RejectRequestHandler handles POST /api/v1/connections/requests/{requesterID}/reject
func (h *ConnectionHandler) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.settleRequest(w, r, h.connectionService.Reject, "rejecting")
}

func (h *ConnectionHandler) settleRequest(w http.ResponseWriter, r *http.Request, settle func(ctx context.Context, userID, requesterID string) (*models.ConnectionRequest, error), verb string) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	requesterID := mux.Vars(r)["requesterID"]
	if requesterID == "" {
		writeJSONError(w, "missing requester id", http.StatusBadRequest)
		return
	}

	request, err := settle(r.Context(), userID, requesterID)
	if err != nil {
		if errors.Is(err, services.ErrNoPendingRequest) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error %s connection request from %s by user %s: %v", verb, requesterID, userID, err)
			writeJSONError(w, "failed to update connection request", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, request)
}

// StatusHandler handles GET /api/v1/connections/status/{userID}
func (h *ConnectionHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	otherUserID := mux.Vars(r)["userID"]
	if otherUserID == "" {
		writeJSONError(w, "missing user id", http.StatusBadRequest)
		return
	}

	status, request, err := h.connectionService.Status(r.Context(), userID, otherUserID)
	if err != nil {
		log.Printf("Error resolving connection status between %s and %s: %v", userID, otherUserID, err)
		writeJSONError(w, "failed to resolve connection status", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"request": request,
	})
}

// ListPendingHandler handles GET /api/v1/connections/requests/pending
func (h *ConnectionHandler) ListPendingHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	pending, err := h.connectionService.ListPendingReceived(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching pending requests for user %s: %v", userID, err)
		writeJSONError(w, "failed to fetch pending requests", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		pending = []models.ConnectionRequestWithRequester{}
	}
	writeJSONResponse(w, http.StatusOK, pending)
}
