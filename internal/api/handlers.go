package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mockbox/internal/apperr"
	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/models"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *entityservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *entityservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListEntities handles GET /api/{type}.
//
//	@Summary		List every entity of a type in insertion order
//	@Tags			entities
//	@Produce		json
//	@Param			type	path		string	true	"Entity type"
//	@Success		200		{object}	EntityListResponse
//	@Router			/{type} [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	items := h.svc.ListEntities(r.Context(), typ)
	WriteJSON(w, http.StatusOK, EntityListResponse{
		Data:    items,
		Message: fmt.Sprintf("Retrieved %d %s entities", len(items), typ),
	})
}

// GetEntity handles GET /api/{type}/{id}.
//
//	@Summary		Get a single entity by id
//	@Tags			entities
//	@Produce		json
//	@Param			type	path		string	true	"Entity type"
//	@Param			id		path		string	true	"Entity id"
//	@Success		200		{object}	EntityResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/{type}/{id} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	typ, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	e, err := h.svc.GetEntity(r.Context(), typ, id)
	if err != nil {
		h.fail(w, "get entity", typ, id, err)
		return
	}
	WriteJSON(w, http.StatusOK, EntityResponse{
		Data:    e,
		Message: fmt.Sprintf("Retrieved %s with ID %s", typ, id),
	})
}

// CreateEntity handles POST /api/{type}.
//
//	@Summary		Create an entity; id and timestamps are generated
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string			true	"Entity type"
//	@Param			body	body		map[string]any	true	"Entity fields"
//	@Success		201		{object}	EntityResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/{type} [post]
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	payload, err := readPayload(w, r)
	if err != nil {
		h.fail(w, "create entity", typ, "", err)
		return
	}
	e, err := h.svc.CreateEntity(r.Context(), typ, payload)
	if err != nil {
		h.fail(w, "create entity", typ, "", err)
		return
	}
	WriteJSON(w, http.StatusCreated, EntityResponse{
		Data:    e,
		Message: fmt.Sprintf("Created %s with ID %s", typ, models.EntityID(e)),
	})
}

// UpdateEntity handles PUT /api/{type}/{id}.
//
//	@Summary		Merge fields over an existing entity
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string			true	"Entity type"
//	@Param			id		path		string			true	"Entity id"
//	@Param			body	body		map[string]any	true	"Fields to merge"
//	@Success		200		{object}	EntityResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/{type}/{id} [put]
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	typ, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	payload, err := readPayload(w, r)
	if err != nil {
		h.fail(w, "update entity", typ, id, err)
		return
	}
	e, err := h.svc.UpdateEntity(r.Context(), typ, id, payload)
	if err != nil {
		h.fail(w, "update entity", typ, id, err)
		return
	}
	WriteJSON(w, http.StatusOK, EntityResponse{
		Data:    e,
		Message: fmt.Sprintf("Updated %s with ID %s", typ, id),
	})
}

// DeleteEntity handles DELETE /api/{type}/{id}.
//
//	@Summary		Delete an entity by id
//	@Tags			entities
//	@Produce		json
//	@Param			type	path		string	true	"Entity type"
//	@Param			id		path		string	true	"Entity id"
//	@Success		200		{object}	MessageResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/{type}/{id} [delete]
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	typ, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	ok, err := h.svc.DeleteEntity(r.Context(), typ, id)
	if err == nil && !ok {
		err = apperr.ErrNotFound
	}
	if err != nil {
		h.fail(w, "delete entity", typ, id, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Deleted %s with ID %s", typ, id),
	})
}

// fail maps a service or decoding error onto an error envelope.
func (h *Handler) fail(w http.ResponseWriter, op, typ, id string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorBody(ErrTitleNotFound,
			fmt.Sprintf("%s with ID %s not found", typ, id)))
	case errors.As(err, &tooLarge):
		WriteJSON(w, http.StatusRequestEntityTooLarge, errorBody(ErrTitleTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
	case errors.Is(err, apperr.ErrInvalidPayload):
		WriteJSON(w, http.StatusBadRequest, errorBody(ErrTitleBadRequest, err.Error()))
	default:
		slog.Error(op+" failed",
			slog.String("type", typ),
			slog.String("id", id),
			slog.String("error", err.Error()))
		WriteJSON(w, http.StatusInternalServerError, errorBody(ErrTitleInternal, err.Error()))
	}
}

func readPayload(w http.ResponseWriter, r *http.Request) (*models.Entity, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	payload, err := models.DecodeEntity(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	return payload, nil
}
