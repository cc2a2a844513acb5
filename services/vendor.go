package services

import (
	"context"
	"fmt"
	"strings"

	"home-services-api/apperrors"
	"home-services-api/models"
	"home-services-api/statemachine"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type VendorService struct {
	db     *gorm.DB
	notify *NotificationService
}

// ListApproved returns the vendors a customer may pick, optionally narrowed
// to one service category.
func (s *VendorService) ListApproved(ctx context.Context, category string) ([]models.User, error) {
	q := s.db.WithContext(ctx).
		Where("role = ? AND approval_status = ?", models.RoleVendor, models.ApprovalApproved)
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("LOWER(service_category) = ?", strings.ToLower(category))
	}
	vendors := []models.User{}
	if err := q.Order("business_name, name").Find(&vendors).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return vendors, nil
}

func (s *VendorService) AdminList(ctx context.Context, status models.ApprovalStatus, page Page) ([]models.User, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleVendor)
	if status != "" {
		q = q.Where("approval_status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	vendors := []models.User{}
	if err := q.Order("created_at desc, id desc").Offset(page.offset()).Limit(page.Size).Find(&vendors).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return vendors, total, nil
}

func (s *VendorService) Get(ctx context.Context, id uint) (*models.User, error) {
	var vendor models.User
	err := s.db.WithContext(ctx).Where("id = ? AND role = ?", id, models.RoleVendor).First(&vendor).Error
	if err != nil {
		return nil, findOr404(err, "Vendor")
	}
	return &vendor, nil
}

func (s *VendorService) Approve(ctx context.Context, id uint) (*models.User, error) {
	return s.decide(ctx, id, models.ApprovalApproved, "")
}

func (s *VendorService) Reject(ctx context.Context, id uint, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Your application did not meet our requirements"
	}
	return s.decide(ctx, id, models.ApprovalRejected, reason)
}

func (s *VendorService) decide(ctx context.Context, id uint, to models.ApprovalStatus, reason string) (*models.User, error) {
	vendor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Approval.CanTransition(vendor.ApprovalStatus, to, statemachine.ActorAdmin); err != nil {
		return nil, invalidTransition(err, vendor.ApprovalStatus, to,
			statemachine.Approval.ValidTransitionsFor(vendor.ApprovalStatus, statemachine.ActorAdmin))
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND approval_status = ?", id, vendor.ApprovalStatus).
		Updates(map[string]any{"approval_status": to, "rejection_reason": reason})
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Conflict(apperrors.CodeStaleState, "Vendor was already reviewed")
	}
	zap.S().Infow("vendor reviewed", "vendor_id", id, "status", to)

	if to == models.ApprovalApproved {
		s.notify.Notify(ctx, id, "Your vendor account is approved",
			"You can now sign in and start accepting bookings.", KindVendorApproval)
	} else {
		s.notify.Notify(ctx, id, "Your vendor application was rejected",
			fmt.Sprintf("Reason: %s", reason), KindVendorApproval)
	}
	return s.Get(ctx, id)
}
