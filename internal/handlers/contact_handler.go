package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/khan-rustam/sparkshift-server/internal/models"
	"github.com/khan-rustam/sparkshift-server/internal/services"
)

type ContactHandler struct {
	notifier *services.Notifier
	v        *validator.Validate
}

func NewContactHandler(notifier *services.Notifier) *ContactHandler {
	return &ContactHandler{
		notifier: notifier,
		v:        validator.New(),
	}
}

// Submit handles POST /api/contact. The response is sent as soon as the
// notifications are enqueued; delivery happens asynchronously and its
// failures never surface here.
// @Tags Contact
// @Summary Submit the contact form
// @Accept json
// @Produce json
// @Param body body models.ContactRequest true "Contact form"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/contact [post]
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "All fields are required")
		return
	}

	h.notifier.SendContactNotification(&req)

	writeJSONMessage(w, http.StatusOK, "Message sent successfully")
}
