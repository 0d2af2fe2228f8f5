package asset

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/middleware"
	"github.com/radif/gallery/internal/request"
	"github.com/radif/gallery/internal/response"
	"github.com/radif/gallery/internal/upload"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the image itself.
const multipartOverhead = 1 << 20

// Handler holds HTTP handlers for asset endpoints.
type Handler struct {
	svc          *Service
	client       *http.Client
	fetchTimeout time.Duration
	log          *zap.Logger
}

// NewHandler creates a new asset Handler. client performs remote fetches.
func NewHandler(svc *Service, client *http.Client, fetchTimeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{svc: svc, client: client, fetchTimeout: fetchTimeout, log: log}
}

// Routes mounts the authenticated asset endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/upload", h.UploadFile)
	r.Post("/upload/url", h.UploadURL)
	r.Post("/harvest", h.Harvest)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Edit)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/review", h.Review)
}

type uploadURLRequest struct {
	URL     string `json:"url"     validate:"required,max=1024" example:"https://example.com/cat.png"`
	SpaceID *int64 `json:"spaceId" validate:"omitempty,gt=0"`
	ID      *int64 `json:"id"      validate:"omitempty,gt=0"`
	Name    string `json:"name"    validate:"max=128"`
}

// UploadFile godoc
//
//	@Summary		Upload image file
//	@Description	Upload a png, jpg, jpeg, or webp image of at most 2 MB. Pass id to replace the image of an existing asset and spaceId to store it in a space.
//	@Tags			assets
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"Image"
//	@Param			spaceId	formData	int		false	"Space ID"
//	@Param			id		formData	int		false	"Asset ID to replace"
//	@Param			name	formData	string	false	"Asset name"
//	@Success		201		{object}	response.Envelope{data=Asset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/assets/upload [post]
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(upload.MaxUploadBytes + multipartOverhead); err != nil {
		response.BadRequest(w, "invalid multipart form or file too large")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, upload.MaxUploadBytes+1))
	if err != nil {
		response.BadRequest(w, "failed to read file")
		return
	}

	req, err := ingestRequestFromForm(r)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	src := &upload.LocalSource{Filename: header.Filename, Data: data}
	a, err := h.svc.Ingest(r.Context(), src, req, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, a)
}

// UploadURL godoc
//
//	@Summary		Upload image from URL
//	@Description	The server downloads the image at url. The same type and size limits as file uploads apply.
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		uploadURLRequest	true	"Source URL"
//	@Success		201		{object}	response.Envelope{data=Asset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/assets/upload/url [post]
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var body uploadURLRequest
	if err := request.DecodeJSON(r, &body); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	src := upload.NewRemoteSource(body.URL, h.client)
	if h.fetchTimeout > 0 {
		src.FetchTimeout = h.fetchTimeout
	}
	a, err := h.svc.Ingest(r.Context(), src, IngestRequest{SpaceID: body.SpaceID, AssetID: body.ID, Name: body.Name}, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, a)
}

type harvestResult struct {
	Created int `json:"created"`
}

// Harvest godoc
//
//	@Summary		Harvest images from search
//	@Description	Administrators only. Searches for searchText and ingests up to count (max 30) results as public assets named namePrefix1, namePrefix2, ... Results that fail to download are skipped.
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		HarvestRequest	true	"Search"
//	@Success		200		{object}	response.Envelope{data=harvestResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Router			/assets/harvest [post]
func (h *Handler) Harvest(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	var req HarvestRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	n, err := h.svc.Harvest(r.Context(), req, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, harvestResult{Created: n})
}

// Get godoc
//
//	@Summary	Get asset
//	@Tags		assets
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Asset ID"
//	@Success	200	{object}	response.Envelope{data=Asset}
//	@Failure	403	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/assets/{id} [get]
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
	a, err := h.svc.Get(r.Context(), id, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, a)
}

// Edit godoc
//
//	@Summary		Edit asset metadata
//	@Description	Edits by non-administrators send the asset back to review.
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int			true	"Asset ID"
//	@Param			request	body		EditRequest	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=Asset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/assets/{id} [patch]
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	id, err := request.IDParam(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	var req EditRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	req.ID = id

	a, err := h.svc.Edit(r.Context(), req, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, a)
}

// Delete godoc
//
//	@Summary	Delete asset
//	@Tags		assets
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Asset ID"
//	@Success	200	{object}	response.Envelope
//	@Failure	403	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/assets/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	id, err := request.IDParam(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id, caller); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, map[string]int64{"id": id})
}

// Review godoc
//
//	@Summary	Review asset
//	@Tags		assets
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int				true	"Asset ID"
//	@Param		request	body		ReviewRequest	true	"Decision"
//	@Success	200		{object}	response.Envelope{data=Asset}
//	@Failure	400		{object}	response.Envelope
//	@Failure	403		{object}	response.Envelope
//	@Failure	404		{object}	response.Envelope
//	@Failure	409		{object}	response.Envelope
//	@Router		/assets/{id}/review [post]
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	id, err := request.IDParam(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	var req ReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	req.ID = id

	a, err := h.svc.Review(r.Context(), req, caller)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.OK(w, a)
}

// TagCategories godoc
//
//	@Summary	List suggested tags and categories
//	@Tags		assets
//	@Produce	json
//	@Success	200	{object}	response.Envelope{data=TagCategories}
//	@Router		/assets/tag-categories [get]
func (h *Handler) TagCategories(w http.ResponseWriter, r *http.Request) {
	response.OK(w, SuggestedTagCategories())
}

func ingestRequestFromForm(r *http.Request) (IngestRequest, error) {
	spaceID, err := optionalID(r.FormValue("spaceId"), "spaceId")
	if err != nil {
		return IngestRequest{}, err
	}
	assetID, err := optionalID(r.FormValue("id"), "id")
	if err != nil {
		return IngestRequest{}, err
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if len([]rune(name)) > 128 {
		return IngestRequest{}, apperr.Params("name is too long")
	}
	return IngestRequest{SpaceID: spaceID, AssetID: assetID, Name: name}, nil
}

func optionalID(raw, field string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Params("invalid %s %q", field, raw)
	}
	return &id, nil
}
