package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/scheduler"
)

type profileService interface {
	ListProfiles(ctx context.Context) ([]scheduler.Profile, error)
	CreateProfile(ctx context.Context, input application.ProfileInput) (scheduler.Profile, error)
	UpdateProfile(ctx context.Context, name string, input application.ProfileInput) (scheduler.Profile, error)
	DeleteProfile(ctx context.Context, name string) error
	RefreshWorkingHours(ctx context.Context) ([]scheduler.Profile, error)
}

type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProfileHandler", operation, attrs...)
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "profile listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProfilesResponse{Profiles: toProfileDTOs(profiles)})
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode profile request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	profile, err := h.service.CreateProfile(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "profile creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("profile", profile.Name).InfoContext(r.Context(), "profile created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, profileResponse{Profile: toProfileDTO(profile)})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name, ok := ProfileNameFromContext(r.Context())
	if !ok || strings.TrimSpace(name) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing profile name for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProfileName)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "profile", name, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode profile update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "profile", name)

	profile, err := h.service.UpdateProfile(r.Context(), name, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "profile update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "profile updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: toProfileDTO(profile)})
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name, ok := ProfileNameFromContext(r.Context())
	if !ok || strings.TrimSpace(name) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing profile name for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProfileName)
		return
	}

	logger := h.log(r.Context(), "Delete", "profile", name)
	if err := h.service.DeleteProfile(r.Context(), name); err != nil {
		logger.ErrorContext(r.Context(), "profile delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "profile deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Refresh recomputes working hours from the snapshot and returns the profiles.
func (h *ProfileHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	profiles, err := h.service.RefreshWorkingHours(r.Context())
	if err != nil {
		h.log(r.Context(), "Refresh").ErrorContext(r.Context(), "working hours refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProfilesResponse{Profiles: toProfileDTOs(profiles)})
}

type profileRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Job            string `json:"job"`
	PreferredShift string `json:"preferred_shift"`
	Age            int    `json:"age"`
}

func (r profileRequest) toInput() application.ProfileInput {
	return application.ProfileInput{
		Name:           r.Name,
		Email:          r.Email,
		Job:            r.Job,
		PreferredShift: r.PreferredShift,
		Age:            r.Age,
	}
}

type profileResponse struct {
	Profile profileDTO `json:"profile"`
}

type listProfilesResponse struct {
	Profiles []profileDTO `json:"profiles"`
}

type profileDTO struct {
	Name           string `json:"name"`
	WorkingHours   int    `json:"working_hours"`
	Email          string `json:"email,omitempty"`
	Job            string `json:"job,omitempty"`
	PreferredShift string `json:"preferred_shift,omitempty"`
	Age            int    `json:"age"`
}

func toProfileDTO(profile scheduler.Profile) profileDTO {
	return profileDTO{
		Name:           profile.Name,
		WorkingHours:   profile.WorkingHours,
		Email:          profile.Email,
		Job:            profile.Job,
		PreferredShift: profile.PreferredShift,
		Age:            profile.Age,
	}
}

func toProfileDTOs(profiles []scheduler.Profile) []profileDTO {
	out := make([]profileDTO, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, toProfileDTO(profile))
	}
	return out
}
