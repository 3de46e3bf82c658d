package handlers

import (
	"net/http"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/isdelr/pollboard/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UserPayload defines the structure for registration and update requests.
// Absent fields decode to nil.
type UserPayload struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
}

const userNotFound = "User not found"

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload UserPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := requireFields(
		requiredField{"username", payload.Username != nil},
		requiredField{"password", payload.Password != nil},
		requiredField{"email", payload.Email != nil},
	); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	user, err := h.service.CreateUser(r.Context(), *payload.Username, *payload.Email, *payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", *payload.Username).Msg("Failed to register user")
		writeServiceError(w, r, err, userNotFound)
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// Login checks a username and password. No session or token is issued.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := requireFields(
		requiredField{"username", payload.Username != nil},
		requiredField{"password", payload.Password != nil},
	); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	if _, err := h.service.AuthenticateUser(r.Context(), *payload.Username, *payload.Password); err != nil {
		log.Warn().Err(err).Str("username", *payload.Username).Msg("Failed authentication attempt")
		writeServiceError(w, r, err, userNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "User logged in successfully")
}

// GetAll handles listing every user.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.User{"users": users})
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, userNotFound)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.User{"user": user})
}

// Update handles a partial update of a user's fields.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, userNotFound)
		return
	}

	// A missing user is reported before the body is looked at.
	if _, err := h.service.GetUserByID(r.Context(), id); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	var payload UserPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	update := models.UserUpdate{Username: payload.Username, Password: payload.Password, Email: payload.Email}
	if _, err := h.service.UpdateUser(r.Context(), id, update); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "User updated successfully")
}

// Delete handles the permanent deletion of a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, userNotFound)
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err, userNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "User deleted successfully")
}
