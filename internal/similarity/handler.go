package similarity

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/middleware"
	"github.com/radif/gallery/internal/request"
	"github.com/radif/gallery/internal/response"
)

// Handler holds the HTTP handler for colour search.
type Handler struct {
	ranker *Ranker
	log    *zap.Logger
}

// NewHandler creates a similarity Handler.
func NewHandler(ranker *Ranker, log *zap.Logger) *Handler {
	return &Handler{ranker: ranker, log: log}
}

// Routes mounts the similarity endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/color", h.RankByColor)
}

// ColorRequest is the body of a colour search.
type ColorRequest struct {
	SpaceID int64  `json:"spaceId" validate:"required,gt=0"         example:"1"`
	Color   string `json:"color"   validate:"required,max=16"       example:"#336699"`
	K       int    `json:"k"       validate:"omitempty,gte=1,lte=100" example:"12"`
}

// RankByColor godoc
//
//	@Summary		Search a space by colour
//	@Description	Returns the assets of a space whose average colour is closest to color. Only the space owner may search.
//	@Tags			similarity
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ColorRequest	true	"Colour search"
//	@Success		200		{object}	response.Envelope{data=[]asset.Asset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/similarity/color [post]
func (h *Handler) RankByColor(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var req ColorRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	assets, err := h.ranker.RankByColor(r.Context(), req.SpaceID, req.Color, req.K, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, assets)
}
