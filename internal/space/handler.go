package space

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/middleware"
	"github.com/radif/gallery/internal/request"
	"github.com/radif/gallery/internal/response"
)

// Handler holds HTTP handlers for space endpoints.
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new space Handler.
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the space endpoints. Callers must already be authenticated.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/levels", h.Levels)
	r.Get("/mine", h.Mine)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/reconcile", h.Reconcile)
}

// Create godoc
//
//	@Summary		Create space
//	@Description	Create the caller's space. Each user may own one. Levels above COMMON require an administrator.
//	@Tags			spaces
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateRequest	true	"Space"
//	@Success		201		{object}	response.Envelope{data=Space}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/spaces [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	sp, err := h.svc.Create(r.Context(), req, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, sp)
}

// Levels godoc
//
//	@Summary	List space levels
//	@Tags		spaces
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.Envelope{data=[]LevelInfo}
//	@Router		/spaces/levels [get]
func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.svc.Levels())
}

// Mine godoc
//
//	@Summary	Get own space
//	@Tags		spaces
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.Envelope{data=Space}
//	@Failure	404	{object}	response.Envelope
//	@Router		/spaces/mine [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	sp, err := h.svc.Mine(r.Context(), caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, sp)
}

// Get godoc
//
//	@Summary	Get space
//	@Tags		spaces
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Space ID"
//	@Success	200	{object}	response.Envelope{data=Space}
//	@Failure	403	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/spaces/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	id, err := request.IDParam(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	sp, err := h.svc.Get(r.Context(), id, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, sp)
}

// Update godoc
//
//	@Summary		Update space
//	@Description	Administrators only. Changing the level resets quotas to the level defaults unless explicit quotas are given.
//	@Tags			spaces
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int				true	"Space ID"
//	@Param			request	body		UpdateRequest	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=Space}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/spaces/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	id, err := request.IDParam(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	var req UpdateRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	req.ID = id

	sp, err := h.svc.Update(r.Context(), req, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, sp)
}

// Reconcile godoc
//
//	@Summary		Reconcile space usage
//	@Description	Administrators only. Recomputes usage counters from stored assets.
//	@Tags			spaces
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Space ID"
//	@Success		200	{object}	response.Envelope{data=Space}
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/spaces/{id}/reconcile [post]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	id, err := request.IDParam(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	sp, err := h.svc.Reconcile(r.Context(), id, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, sp)
}
