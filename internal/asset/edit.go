package asset

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/radif/gallery/internal/apperr"
	"github.com/radif/gallery/internal/identity"
)

// Get returns an asset visible to caller. Approved public assets are
// visible to everyone.
func (s *Service) Get(ctx context.Context, id int64, caller identity.Caller) (*Asset, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsPublic() && a.ReviewStatus == ReviewPass {
		return a, nil
	}
	if err := authorizeWrite(a, caller); err != nil {
		return nil, err
	}
	return a, nil
}

// Edit changes asset metadata. Edits by non-administrators send the asset
// back to review.
func (s *Service) Edit(ctx context.Context, req EditRequest, caller identity.Caller) (*Asset, error) {
	a, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := authorizeWrite(a, caller); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Params("name must not be empty")
		}
		if len([]rune(name)) > 128 {
			return nil, apperr.Params("name is too long")
		}
		a.Name = name
	}
	if req.Introduction != nil {
		if len([]rune(*req.Introduction)) > 1024 {
			return nil, apperr.Params("introduction is too long")
		}
		a.Introduction = *req.Introduction
	}
	if req.Category != nil {
		a.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		a.Tags = NormalizeTags(req.Tags)
	}

	now := s.now()
	a.EditedAt = now
	a.applyReview(caller.ID, caller.Admin, now)

	updated, err := s.store.Update(ctx, a)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("asset %d not found", req.ID)
	}
	if err != nil {
		return nil, apperr.System(err, "failed to edit asset")
	}
	return updated, nil
}

// Review records an administrator's moderation decision.
func (s *Service) Review(ctx context.Context, req ReviewRequest, caller identity.Caller) (*Asset, error) {
	if !caller.Admin {
		return nil, apperr.Auth("only administrators can review assets")
	}
	if req.Status != ReviewPass && req.Status != ReviewRejected {
		return nil, apperr.Params("review status must be PASS or REJECTED")
	}

	a, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if a.ReviewStatus == req.Status {
		return nil, apperr.Operation("asset %d is already %s", a.ID, req.Status)
	}

	now := s.now()
	reviewer := caller.ID
	a.ReviewStatus = req.Status
	a.ReviewerID = &reviewer
	a.ReviewMessage = optional(strings.TrimSpace(req.Message))
	a.ReviewedAt = &now

	updated, err := s.store.Update(ctx, a)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("asset %d not found", req.ID)
	}
	if err != nil {
		return nil, apperr.System(err, "failed to review asset")
	}

	s.log.Info("asset reviewed",
		zap.Int64("asset_id", a.ID),
		zap.String("status", string(req.Status)),
		zap.String("reviewer_id", reviewer),
	)
	return updated, nil
}
