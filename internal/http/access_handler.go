package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/domain"
)

type accessService interface {
	GrantUserResourceAccess(ctx context.Context, system domain.ExternalSystem, externalUserID string, email domain.EmailAddress) error
}

type AccessHandler struct {
	service   accessService
	responder responder
	logger    *slog.Logger
}

func NewAccessHandler(service accessService, logger *slog.Logger) *AccessHandler {
	base := defaultLogger(logger)
	return &AccessHandler{service: service, responder: newResponder(base), logger: base}
}

// Grant links a Slack user to an email and shares every resource calendar.
func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req accessGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "AccessHandler", "Grant", "error_kind", "bad_request").
			ErrorContext(r.Context(), "failed to decode access grant", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := domain.EmailAddress(strings.TrimSpace(req.Email))
	if email != "" {
		parsed, err := domain.NewEmailAddress(req.Email)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"email": "email is invalid"},
			})
			return
		}
		email = parsed
	}

	err := h.service.GrantUserResourceAccess(r.Context(), domain.ExternalSystemSlack, strings.TrimSpace(req.SlackUserID), email)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, accessGrantResponse{
		Email:       email.String(),
		SlackUserID: strings.TrimSpace(req.SlackUserID),
	})
}

type accessGrantRequest struct {
	Email       string `json:"email"`
	SlackUserID string `json:"slack_user_id"`
}

type accessGrantResponse struct {
	Email       string `json:"email"`
	SlackUserID string `json:"slack_user_id"`
}
