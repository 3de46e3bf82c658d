package handlers

import (
	"net/http"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/isdelr/pollboard/internal/services"
	"github.com/rs/zerolog/log"
)

// PollHandler handles HTTP requests for polls, their options and votes.
type PollHandler struct {
	service services.PollServiceProvider
}

// NewPollHandler creates a new PollHandler.
func NewPollHandler(service services.PollServiceProvider) *PollHandler {
	return &PollHandler{service: service}
}

// PollPayload defines the structure for poll creation and update requests.
type PollPayload struct {
	Question *string   `json:"question"`
	Options  *[]string `json:"options"`
}

// OptionPayload defines the structure for option update requests.
type OptionPayload struct {
	OptionText *string `json:"option_text"`
}

const (
	pollNotFound   = "Poll not found"
	optionNotFound = "Poll option not found"
)

// Create handles adding a poll with its options.
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload PollPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := requireFields(
		requiredField{"question", payload.Question != nil},
		requiredField{"options", payload.Options != nil},
	); err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}

	poll, err := h.service.CreatePoll(r.Context(), *payload.Question, *payload.Options)
	if err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}

	log.Info().Int64("poll_id", poll.ID).Int("options", len(poll.Options)).Msg("Poll created")
	writeMessage(w, http.StatusCreated, "Poll added successfully")
}

// GetAll handles listing every poll without options.
func (h *PollHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.GetAllPolls(r.Context())
	if err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.PollSummary{"polls": polls})
}

// Get handles retrieving a poll and its options.
func (h *PollHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, pollNotFound)
		return
	}

	poll, err := h.service.GetPollByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Poll{"poll": poll})
}

// Update handles changing a poll's question.
func (h *PollHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, pollNotFound)
		return
	}

	if _, err := h.service.GetPollByID(r.Context(), id); err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}

	var payload PollPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	if _, err := h.service.UpdatePoll(r.Context(), id, payload.Question); err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Poll updated successfully")
}

// Delete handles removing a poll and, by cascade, its options.
func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, pollNotFound)
		return
	}

	if err := h.service.DeletePoll(r.Context(), id); err != nil {
		writeServiceError(w, r, err, pollNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Poll deleted successfully")
}

// UpdateOption handles changing an option's text.
func (h *PollHandler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := idParam(r, "optionID")
	if !ok {
		writeError(w, http.StatusNotFound, optionNotFound)
		return
	}

	if _, err := h.service.GetOptionByID(r.Context(), optionID); err != nil {
		writeServiceError(w, r, err, optionNotFound)
		return
	}

	var payload OptionPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	if _, err := h.service.UpdateOption(r.Context(), optionID, payload.OptionText); err != nil {
		writeServiceError(w, r, err, optionNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Poll option updated successfully")
}

// DeleteOption handles removing a single option.
func (h *PollHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := idParam(r, "optionID")
	if !ok {
		writeError(w, http.StatusNotFound, optionNotFound)
		return
	}

	if err := h.service.DeleteOption(r.Context(), optionID); err != nil {
		writeServiceError(w, r, err, optionNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Poll option deleted successfully")
}

// Vote handles adding one vote to an option of a poll.
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID, okPoll := idParam(r, "id")
	optionID, okOption := idParam(r, "optionID")
	if !okPoll || !okOption {
		writeError(w, http.StatusNotFound, optionNotFound)
		return
	}

	opt, err := h.service.Vote(r.Context(), pollID, optionID)
	if err != nil {
		writeServiceError(w, r, err, optionNotFound)
		return
	}

	log.Debug().Int64("poll_id", pollID).Int64("option_id", optionID).Int64("votes", opt.Votes).Msg("Vote recorded")
	writeMessage(w, http.StatusOK, "Vote added successfully")
}
