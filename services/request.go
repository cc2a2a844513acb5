package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"home-services-api/apperrors"
	"home-services-api/models"
	"home-services-api/statemachine"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OthersRequestService struct {
	db     *gorm.DB
	notify *NotificationService
}

type OthersRequestInput struct {
	Title         string
	Description   string
	Location      string
	PreferredDate string
	AttachmentURL string
}

func (s *OthersRequestService) Create(ctx context.Context, userID uint, in OthersRequestInput) (*models.OthersRequest, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("Request validation failed").WithDetails(map[string]any{"fields": fields})
	}

	req := models.OthersRequest{
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Location:      in.Location,
		PreferredDate: in.PreferredDate,
		AttachmentURL: in.AttachmentURL,
		Status:        models.RequestPending,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	zap.S().Infow("others request created", "request_id", req.ID, "user_id", userID)
	s.notify.NotifyAdmins(ctx, "New service request",
		fmt.Sprintf("Request #%d: %s", req.ID, req.Title), KindRequest)
	return &req, nil
}

func (s *OthersRequestService) ListMine(ctx context.Context, userID uint) ([]models.OthersRequest, error) {
	reqs := []models.OthersRequest{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&reqs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return reqs, nil
}

// Get returns a request visible to viewer: its owner or any admin.
func (s *OthersRequestService) Get(ctx context.Context, id uint, viewer Viewer) (*models.OthersRequest, error) {
	var req models.OthersRequest
	if err := s.db.WithContext(ctx).Preload("User").First(&req, id).Error; err != nil {
		return nil, findOr404(err, "Request")
	}
	if viewer.Role != models.RoleAdmin && req.UserID != viewer.ID {
		return nil, apperrors.NotFound("Request")
	}
	return &req, nil
}

func (s *OthersRequestService) Cancel(ctx context.Context, id, userID uint) (*models.OthersRequest, error) {
	req, err := s.Get(ctx, id, Viewer{ID: userID, Role: models.RoleUser})
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, req, models.RequestCancelled, statemachine.ActorUser, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, Viewer{ID: userID, Role: models.RoleUser})
}

func (s *OthersRequestService) AdminList(ctx context.Context, status models.RequestStatus, page Page) ([]models.OthersRequest, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.OthersRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	reqs := []models.OthersRequest{}
	err := q.Preload("User").Order("created_at desc, id desc").Offset(page.offset()).Limit(page.Size).Find(&reqs).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return reqs, total, nil
}

// AdminUpdate moves a request to status and/or replaces its admin notes.
func (s *OthersRequestService) AdminUpdate(ctx context.Context, id uint, status *models.RequestStatus, notes *string) (*models.OthersRequest, error) {
	admin := Viewer{Role: models.RoleAdmin}
	req, err := s.Get(ctx, id, admin)
	if err != nil {
		return nil, err
	}
	if status == nil && notes == nil {
		return nil, apperrors.Validation("status or admin_notes is required")
	}

	if status != nil && *status != req.Status {
		if err := s.transition(ctx, req, *status, statemachine.ActorAdmin, notes); err != nil {
			return nil, err
		}
	} else if notes != nil {
		err := s.db.WithContext(ctx).Model(&models.OthersRequest{}).Where("id = ?", id).
			Update("admin_notes", *notes).Error
		if err != nil {
			return nil, apperrors.Internal(err)
		}
	}
	return s.Get(ctx, id, admin)
}

func (s *OthersRequestService) transition(ctx context.Context, req *models.OthersRequest, to models.RequestStatus, actor statemachine.Actor, notes *string) error {
	if err := statemachine.OthersRequest.CanTransition(req.Status, to, actor); err != nil {
		return invalidTransition(err, req.Status, to, statemachine.OthersRequest.ValidTransitionsFor(req.Status, actor))
	}
	updates := map[string]any{"status": to}
	if notes != nil {
		updates["admin_notes"] = *notes
	}
	res := s.db.WithContext(ctx).Model(&models.OthersRequest{}).
		Where("id = ? AND status = ?", req.ID, req.Status).Updates(updates)
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict(apperrors.CodeStaleState, "Request was changed by someone else, reload and retry")
	}
	zap.S().Infow("others request status changed", "request_id", req.ID, "from", req.Status, "to", to, "actor", actor)

	if actor == statemachine.ActorAdmin {
		s.notify.Notify(ctx, req.UserID, fmt.Sprintf("Request #%d is now %s", req.ID, to), req.Title, KindRequest)
	}
	return nil
}

// invalidTransition renders a state machine rejection as a 422 the client can act on.
func invalidTransition[S ~string](err error, current, requested S, valid []S) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity,
		"Invalid state transition").WithDetails(map[string]any{
		"current_status":    current,
		"requested_status":  requested,
		"reason":            err.Error(),
		"valid_next_states": valid,
	})
}
