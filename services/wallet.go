package services

import (
	"context"

	"home-services-api/apperrors"
	"home-services-api/models"

	"gorm.io/gorm"
)

type WalletService struct {
	db       *gorm.DB
	payments *PaymentService
}

type WalletSummary struct {
	Balance float64 `json:"balance"`
}

func (s *WalletService) Balance(ctx context.Context, userID uint) (*WalletSummary, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "wallet_balance").First(&user, userID).Error; err != nil {
		return nil, findOr404(err, "User")
	}
	return &WalletSummary{Balance: user.WalletBalance}, nil
}

func (s *WalletService) Transactions(ctx context.Context, userID uint, page Page) ([]models.Transaction, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	txns := []models.Transaction{}
	if err := q.Order("date desc, id desc").Offset(page.offset()).Limit(page.Size).Find(&txns).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return txns, total, nil
}

// TopUp starts a gateway checkout that credits the wallet once verified.
func (s *WalletService) TopUp(ctx context.Context, userID uint, amount float64, returnURL string) (*models.PaymentOrder, error) {
	return s.payments.CreateOrder(ctx, userID, CreateOrderInput{
		Amount:    amount,
		Purpose:   models.PurposeTopUp,
		ReturnURL: returnURL,
	})
}

func (s *WalletService) ConfirmTopUp(ctx context.Context, userID uint, orderID string) (*VerifyResult, error) {
	return s.payments.VerifyForUser(ctx, userID, orderID, models.PurposeTopUp)
}

// creditTx records a top-up credit for orderID and raises the balance, both at
// most once per order. It must run inside tx.
func (s *WalletService) creditTx(tx *gorm.DB, userID uint, amount float64, orderID string) (*models.Transaction, *float64, error) {
	txn, err := recordOnce(tx, models.Transaction{
		UserID: userID,
		Amount: amount,
		Type:   models.TransactionCredit,
		Title:  "Wallet Top-up #" + orderID,
		Tag:    models.TagTopUp,
		Date:   s.payments.now(),
	}, orderID)
	if err != nil || txn == nil {
		return nil, nil, err
	}
	err = tx.Model(&models.User{}).Where("id = ?", userID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", amount)).Error
	if err != nil {
		return nil, nil, err
	}
	var user models.User
	if err := tx.Select("id", "wallet_balance").First(&user, userID).Error; err != nil {
		return nil, nil, err
	}
	return txn, &user.WalletBalance, nil
}
