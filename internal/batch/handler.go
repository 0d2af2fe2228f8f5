package batch

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/middleware"
	"github.com/radif/gallery/internal/request"
	"github.com/radif/gallery/internal/response"
)

// Handler holds the HTTP handler for batch edits.
type Handler struct {
	exec *Executor
	log  *zap.Logger
}

// NewHandler creates a batch Handler.
func NewHandler(exec *Executor, log *zap.Logger) *Handler {
	return &Handler{exec: exec, log: log}
}

// Routes mounts the batch endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/edit", h.Edit)
}

// EditRequest is the body of a batch edit.
type EditRequest struct {
	SpaceID  int64    `json:"spaceId"  validate:"required,gt=0"                    example:"1"`
	IDs      []int64  `json:"ids"      validate:"required,min=1,max=1000,dive,gt=0"`
	Category string   `json:"category" validate:"max=64"                           example:"poster"`
	Tags     []string `json:"tags"     validate:"omitempty,max=20,dive,max=32"`
	NameRule string   `json:"nameRule" validate:"max=128"                          example:"img-{n}"`
}

type editResult struct {
	Updated int `json:"updated"`
}

// Edit godoc
//
//	@Summary		Batch edit assets
//	@Description	Sets category and tags and renames with nameRule ({n} is replaced by 1..N) for the listed assets of a space. Only the space owner may call it. Ids outside the space are ignored.
//	@Tags			batch
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		EditRequest	true	"Batch edit"
//	@Success		200		{object}	response.Envelope{data=editResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/batch/edit [post]
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var req EditRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	n, err := h.exec.Apply(r.Context(), req.SpaceID, req.IDs, Mutation{
		Category: req.Category,
		Tags:     req.Tags,
		NameRule: req.NameRule,
	}, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, editResult{Updated: n})
}
