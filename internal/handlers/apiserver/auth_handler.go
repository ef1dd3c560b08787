package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"matri-go/internal/middleware"
	"matri-go/internal/models"
	"matri-go/internal/services"
	"matri-go/internal/storage"
)

// AuthHandler handles OTP login and device token registration.
type AuthHandler struct {
	authService services.AuthService
	userRepo    storage.UserRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService services.AuthService, userRepo storage.UserRepository) *AuthHandler {
	return &AuthHandler{authService: authService, userRepo: userRepo}
}

// RequestOTPPayload defines the expected JSON body for requesting a code.
type RequestOTPPayload struct {
	Target string `json:"target"`
}

// VerifyOTPPayload defines the expected JSON body for verifying a code.
type VerifyOTPPayload struct {
	Target   string `json:"target"`
	Code     string `json:"code"`
	FullName string `json:"fullName,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// VerifyOTPResponse is returned on a successful verification.
type VerifyOTPResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RequestOTPHandler handles POST /api/v1/auth/request-otp
func (h *AuthHandler) RequestOTPHandler(w http.ResponseWriter, r *http.Request) {
	var payload RequestOTPPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.authService.RequestOTP(r.Context(), payload.Target); err != nil {
		if errors.Is(err, services.ErrInvalidTarget) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		} else {
			log.Printf("Error requesting OTP for %s: %v", payload.Target, err)
			writeJSONError(w, "failed to send verification code", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// VerifyOTPHandler handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var payload VerifyOTPPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	token, user, err := h.authService.VerifyOTP(r.Context(), payload.Target, payload.Code, payload.FullName, payload.Gender)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTarget):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidOTP):
			writeJSONError(w, err.Error(), http.StatusUnauthorized)
		default:
			log.Printf("Error verifying OTP for %s: %v", payload.Target, err)
			writeJSONError(w, "verification failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, VerifyOTPResponse{Token: token, User: user})
}

// RegisterDeviceTokenPayload defines the expected JSON body for push token
// registration.
type RegisterDeviceTokenPayload struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterDeviceTokenHandler handles POST /api/v1/users/me/device-tokens
func (h *AuthHandler) RegisterDeviceTokenHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "unable to determine user from context", http.StatusUnauthorized)
		return
	}

	var payload RegisterDeviceTokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(payload.Token) == "" {
		writeJSONError(w, "missing device token", http.StatusBadRequest)
		return
	}

	deviceToken := &models.DeviceToken{
		UserID:   userID,
		Token:    payload.Token,
		Platform: payload.Platform,
	}
	if err := h.userRepo.RegisterDeviceToken(r.Context(), deviceToken); err != nil {
		log.Printf("Error registering device token for user %s: %v", userID, err)
		writeJSONError(w, "failed to register device token", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]string{"message": "device token registered"})
}
