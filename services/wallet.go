package services

import (
	"context"
	"errors"
	"fmt"

	"wingo/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BalanceChange struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

type LedgerEntry struct {
	UserID      uint
	Type        string
	Status      string
	Amount      decimal.Decimal
	Change      BalanceChange
	Description string
	ReferenceID string
}

// Wallet moves money on user balances. Every method that takes a tx runs
// inside the caller's transaction; balance changes and their ledger rows
// must share it.
type Wallet struct {
	db *gorm.DB
}

func NewWallet(db *gorm.DB) *Wallet {
	return &Wallet{db: db}
}

func (w *Wallet) lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	return &user, nil
}

func (w *Wallet) setBalance(tx *gorm.DB, userID uint, balance decimal.Decimal) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).Update("balance", balance)
	if res.Error != nil {
		return fmt.Errorf("update balance of user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (w *Wallet) Debit(tx *gorm.DB, userID uint, amount decimal.Decimal) (BalanceChange, error) {
	if !amount.IsPositive() {
		return BalanceChange{}, ErrInvalidAmount
	}
	user, err := w.lockUser(tx, userID)
	if err != nil {
		return BalanceChange{}, err
	}
	if user.Balance.LessThan(amount) {
		return BalanceChange{}, ErrInsufficientBalance
	}

	change := BalanceChange{Before: user.Balance, After: user.Balance.Sub(amount)}
	if err := w.setBalance(tx, userID, change.After); err != nil {
		return BalanceChange{}, err
	}
	return change, nil
}

func (w *Wallet) Credit(tx *gorm.DB, userID uint, amount decimal.Decimal) (BalanceChange, error) {
	if !amount.IsPositive() {
		return BalanceChange{}, ErrInvalidAmount
	}
	user, err := w.lockUser(tx, userID)
	if err != nil {
		return BalanceChange{}, err
	}

	change := BalanceChange{Before: user.Balance, After: user.Balance.Add(amount)}
	if err := w.setBalance(tx, userID, change.After); err != nil {
		return BalanceChange{}, err
	}
	return change, nil
}

func (w *Wallet) AppendTransaction(tx *gorm.DB, e LedgerEntry) (*models.Transaction, error) {
	status := e.Status
	if status == "" {
		status = models.TrxCompleted
	}
	trx := models.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        e.UserID,
		Type:          e.Type,
		Status:        status,
		Amount:        e.Amount,
		BalanceBefore: e.Change.Before,
		BalanceAfter:  e.Change.After,
		Description:   e.Description,
		ReferenceID:   e.ReferenceID,
	}
	if err := tx.Create(&trx).Error; err != nil {
		return nil, fmt.Errorf("append %s transaction: %w", e.Type, err)
	}
	return &trx, nil
}

// CreditWithEntry credits and records the paired ledger row.
func (w *Wallet) CreditWithEntry(tx *gorm.DB, userID uint, amount decimal.Decimal, trxType, description, reference string) (*models.Transaction, error) {
	change, err := w.Credit(tx, userID, amount)
	if err != nil {
		return nil, err
	}
	return w.AppendTransaction(tx, LedgerEntry{
		UserID:      userID,
		Type:        trxType,
		Amount:      amount,
		Change:      change,
		Description: description,
		ReferenceID: reference,
	})
}

func (w *Wallet) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := w.db.WithContext(ctx).Select("id", "balance").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// Transactions lists a user's ledger, newest first.
func (w *Wallet) Transactions(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error) {
	limit, offset = ClampPage(limit, offset)
	q := w.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Transaction
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
