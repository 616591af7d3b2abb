package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/utils"
)

func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || utils.NormalizeName(name) == "" {
		h.errorResponse(w, r, "invalid clinician name")
		return
	}

	contact, err := h.repository.GetContactByName(utils.NormalizeName(name))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.successResponse(w, r, "no contact details on file", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "ok", contact)
}

func (h *Handler) UpsertContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string                   `json:"name" validate:"required,max=100"`
		Email     string                   `json:"email" validate:"omitempty,email,max=254"`
		Phone     string                   `json:"phone" validate:"omitempty,max=32"`
		Preferred domain.ContactPreference `json:"preferred" validate:"required,oneof=email phone text"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.Name = utils.NormalizeName(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	contact := &domain.Contact{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Preferred: req.Preferred,
	}
	if err := utils.ValidateContact(contact); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.repository.UpsertContact(contact); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "contact saved", contact)
}
