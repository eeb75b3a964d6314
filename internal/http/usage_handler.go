package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
)

type usageService interface {
	Create(ctx context.Context, input application.CreateReservationInput) (domain.ResourceUsage, error)
	Update(ctx context.Context, input application.UpdateReservationInput) (domain.ResourceUsage, error)
	Delete(ctx context.Context, id domain.UsageID, actor domain.EmailAddress) error
	Get(ctx context.Context, id domain.UsageID) (domain.ResourceUsage, error)
	ListFuture(ctx context.Context) ([]domain.ResourceUsage, error)
	ListByOwner(ctx context.Context, owner domain.EmailAddress) ([]domain.ResourceUsage, error)
}

// ResourceCatalog resolves request resource names against the configuration.
type ResourceCatalog interface {
	Server(name string) (config.ServerConfig, bool)
	Room(name string) (config.RoomConfig, bool)
}

type UsageHandler struct {
	service   usageService
	catalog   ResourceCatalog
	responder responder
	logger    *slog.Logger
}

func NewUsageHandler(service usageService, catalog ResourceCatalog, logger *slog.Logger) *UsageHandler {
	base := defaultLogger(logger)
	return &UsageHandler{service: service, catalog: catalog, responder: newResponder(base), logger: base}
}

func (h *UsageHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UsageHandler", operation, attrs...)
}

func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var (
		usages []domain.ResourceUsage
		err    error
	)
	if raw := r.URL.Query().Get("owner"); raw != "" {
		owner, parseErr := domain.NewEmailAddress(raw)
		if parseErr != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOwner)
			return
		}
		usages, err = h.service.ListByOwner(r.Context(), owner)
	} else {
		usages, err = h.service.ListFuture(r.Context())
	}
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]usageDTO, 0, len(usages))
	for _, usage := range usages {
		out = append(out, toUsageDTO(usage))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsagesResponse{Usages: out})
}

func (h *UsageHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "actor", actor.String())

	var req createUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode reservation request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	resources, err := h.resolveResources(req.Resources)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to resolve resources", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	usage, err := h.service.Create(r.Context(), application.CreateReservationInput{
		Owner:     actor,
		Start:     req.Start,
		End:       req.End,
		Resources: resources,
		Notes:     req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toUsageDTO(usage))
}

func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	usage, err := h.service.Get(r.Context(), usageIDParam(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUsageDTO(usage))
}

func (h *UsageHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	id := usageIDParam(r)

	var req updateUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "usage_id", id.String(), "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	usage, err := h.service.Update(r.Context(), application.UpdateReservationInput{
		ID:    id,
		Actor: actor,
		Start: req.Start,
		End:   req.End,
		Notes: req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUsageDTO(usage))
}

func (h *UsageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), usageIDParam(r), actor); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// resolveResources turns {server, devices} and {room} entries into domain
// resources. Unknown names are reported per entry.
func (h *UsageHandler) resolveResources(requested []resourceRequest) ([]domain.Resource, error) {
	vErr := &application.ValidationError{}
	var resources []domain.Resource
	for _, item := range requested {
		switch {
		case item.Server != "" && item.Room != "":
			vErr.FieldErrors = addField(vErr.FieldErrors, "resources", "server and room are mutually exclusive")
		case item.Server != "":
			server, ok := h.catalog.Server(item.Server)
			if !ok {
				vErr.FieldErrors = addField(vErr.FieldErrors, "resources", "unknown server "+item.Server)
				continue
			}
			gpus, err := domain.CreateGPUs(item.Devices, server.Name, server.DomainDevices())
			if err != nil {
				return nil, err
			}
			resources = append(resources, gpus...)
		case item.Room != "":
			room, ok := h.catalog.Room(item.Room)
			if !ok {
				vErr.FieldErrors = addField(vErr.FieldErrors, "resources", "unknown room "+item.Room)
				continue
			}
			resources = append(resources, domain.Room{Name: room.Name})
		default:
			vErr.FieldErrors = addField(vErr.FieldErrors, "resources", "server or room is required")
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return resources, nil
}

func addField(fields map[string]string, field, message string) map[string]string {
	if fields == nil {
		fields = make(map[string]string)
	}
	if existing, ok := fields[field]; ok {
		message = existing + "; " + message
	}
	fields[field] = message
	return fields
}

func usageIDParam(r *http.Request) domain.UsageID {
	return domain.UsageID(strings.TrimSpace(chi.URLParam(r, "id")))
}

type resourceRequest struct {
	Server  string `json:"server,omitempty"`
	Devices string `json:"devices,omitempty"`
	Room    string `json:"room,omitempty"`
}

type createUsageRequest struct {
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Resources []resourceRequest `json:"resources"`
	Notes     string            `json:"notes,omitempty"`
}

type updateUsageRequest struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Notes *string    `json:"notes,omitempty"`
}

type resourceDTO struct {
	Type         string `json:"type"`
	Server       string `json:"server,omitempty"`
	DeviceNumber *int   `json:"device_number,omitempty"`
	Model        string `json:"model,omitempty"`
	Room         string `json:"room,omitempty"`
	Description  string `json:"description"`
}

type usageDTO struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Resources []resourceDTO `json:"resources"`
	Notes     string        `json:"notes,omitempty"`
}

type listUsagesResponse struct {
	Usages []usageDTO `json:"usages"`
}

func toUsageDTO(usage domain.ResourceUsage) usageDTO {
	resources := make([]resourceDTO, 0, len(usage.Resources()))
	for _, resource := range usage.Resources() {
		switch r := resource.(type) {
		case domain.GPU:
			n := r.DeviceNumber
			resources = append(resources, resourceDTO{Type: "gpu", Server: r.Server, DeviceNumber: &n, Model: r.Model, Description: r.Describe()})
		case domain.Room:
			resources = append(resources, resourceDTO{Type: "room", Room: r.Name, Description: r.Describe()})
		}
	}
	slices.SortStableFunc(resources, func(a, b resourceDTO) int { return strings.Compare(a.Type, b.Type) })

	return usageDTO{
		ID:        usage.ID().String(),
		Owner:     usage.Owner().String(),
		Start:     usage.TimePeriod().Start().UTC().Format(time.RFC3339),
		End:       usage.TimePeriod().End().UTC().Format(time.RFC3339),
		Resources: resources,
		Notes:     usage.Notes(),
	}
}
