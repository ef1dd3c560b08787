package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"matri-go/internal/middleware"
	"matri-go/internal/storage"
)

// UserHandler handles profile reads and updates.
type UserHandler struct {
	userRepo storage.UserRepository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo storage.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// GetMeHandler handles GET /api/v1/users/me
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, "user not found", http.StatusNotFound)
		} else {
			log.Printf("Error fetching user %s: %v", userID, err)
			writeJSONError(w, "failed to fetch profile", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// UpdateProfilePayload defines the updatable profile fields.
type UpdateProfilePayload struct {
	FullName       *string `json:"fullName"`
	Gender         *string `json:"gender"`
	ProfilePicture *string `json:"profilePicture"`
}

// UpdateMeHandler handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	var payload UpdateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, "user not found", http.StatusNotFound)
		} else {
			log.Printf("Error fetching user %s: %v", userID, err)
			writeJSONError(w, "failed to update profile", http.StatusInternalServerError)
		}
		return
	}

	if payload.FullName != nil {
		if strings.TrimSpace(*payload.FullName) == "" {
			writeJSONError(w, "fullName must not be empty", http.StatusBadRequest)
			return
		}
		user.FullName = *payload.FullName
	}
	if payload.Gender != nil {
		user.Gender = *payload.Gender
	}
	if payload.ProfilePicture != nil {
		user.ProfilePicture = *payload.ProfilePicture
	}

	if err := h.userRepo.Update(r.Context(), user); err != nil {
		log.Printf("Error updating user %s: %v", userID, err)
		writeJSONError(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// GetUserHandler handles GET /api/v1/users/{userID} and returns public fields
// only.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["userID"]
	if targetID == "" {
		writeJSONError(w, "missing user id", http.StatusBadRequest)
		return
	}

	info, err := h.userRepo.GetBasicInfoByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, "user not found", http.StatusNotFound)
		} else {
			log.Printf("Error fetching user %s: %v", targetID, err)
			writeJSONError(w, "failed to fetch user", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}
