package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/middleware"
	"github.com/radif/gallery/internal/request"
	"github.com/radif/gallery/internal/response"
)

// Handler holds HTTP handlers for listing endpoints.
type Handler struct {
	svc       *Service
	rateLimit int
	log       *zap.Logger
}

// NewHandler creates a catalog Handler. requestsPerMinute limits each
// client IP on the listing routes; zero disables the limit.
func NewHandler(svc *Service, requestsPerMinute int, log *zap.Logger) *Handler {
	return &Handler{svc: svc, rateLimit: requestsPerMinute, log: log}
}

// Routes mounts the listing endpoints.
func (h *Handler) Routes(r chi.Router) {
	if h.rateLimit > 0 {
		r.Use(httprate.LimitByIP(h.rateLimit, time.Minute))
	}
	r.Post("/page", h.ListPage)
	r.Post("/page/cached", h.ListPageCached)
	r.Post("/all", h.ListAll)
}

// ListPage godoc
//
//	@Summary		List assets
//	@Description	Without spaceId lists the approved public gallery; with spaceId lists that space for its owner. pageSize is at most 20.
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Filter	true	"Filter"
//	@Success		200		{object}	response.Envelope{data=Page}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		429		{object}	response.Envelope
//	@Router			/catalog/page [post]
func (h *Handler) ListPage(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var f Filter
	if err := request.DecodeJSON(r, &f); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	page, err := h.svc.ListPage(r.Context(), f, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, page)
}

// ListPageCached godoc
//
//	@Summary		List assets (cached)
//	@Description	Same as /catalog/page, served from cache. Results may be up to ten minutes stale.
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Filter	true	"Filter"
//	@Success		200		{object}	response.Envelope{data=Page}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		429		{object}	response.Envelope
//	@Router			/catalog/page/cached [post]
func (h *Handler) ListPageCached(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var f Filter
	if err := request.DecodeJSON(r, &f); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	data, err := h.svc.ListPageCached(r.Context(), f, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.RawData(w, data)
}

// ListAll godoc
//
//	@Summary		List all assets
//	@Description	Administrators only. No visibility restrictions and no caching.
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Filter	true	"Filter"
//	@Success		200		{object}	response.Envelope{data=Page}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Router			/catalog/all [post]
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var f Filter
	if err := request.DecodeJSON(r, &f); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	page, err := h.svc.ListAll(r.Context(), f, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, page)
}
