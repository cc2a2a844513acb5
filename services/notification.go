package services

import (
	"context"

	"home-services-api/apperrors"
	"home-services-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	KindBooking        = "booking"
	KindPayment        = "payment"
	KindVendorApproval = "vendor_approval"
	KindRequest        = "others_request"
)

type NotificationService struct {
	db   *gorm.DB
	mail MailQueue
}

// Notify stores an in-app notification and emails the user. Failures are
// logged; a notification never fails the operation that triggered it.
func (s *NotificationService) Notify(ctx context.Context, userID uint, title, body, kind string) {
	n := models.Notification{UserID: userID, Title: title, Body: body, Kind: kind}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		zap.L().Error("store notification", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	if s.mail == nil {
		return
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, userID).Error; err != nil {
		zap.L().Warn("notification recipient lookup", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	_ = s.mail.SendAsync(user.Email, title, body)
}

// NotifyAdmins fans a notification out to every admin account.
func (s *NotificationService) NotifyAdmins(ctx context.Context, title, body, kind string) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).Pluck("id", &ids).Error; err != nil {
		zap.L().Error("list admins", zap.Error(err))
		return
	}
	for _, id := range ids {
		s.Notify(ctx, id, title, body, kind)
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	var items []models.Notification
	err := q.Order("created_at desc, id desc").Offset(page.offset()).Limit(page.Size).Find(&items).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return items, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).Update("is_read", true)
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error)
	}
	return res.RowsAffected, nil
}
