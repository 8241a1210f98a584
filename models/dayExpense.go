package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/shopspring/decimal"
)

// DayExpense is a cash-out recorded by an attendant, held PENDING until a
// supervisor reviews it. SourceEventId carries the inbound message id so a
// retried write of the same event lands on the unique index instead of
// double-posting.
type DayExpense struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TradeDate     time.Time       `gorm:"type:date;not null;index:idx_expense_day" json:"trade_date"`
	OutletId      int             `gorm:"not null;index:idx_expense_day" json:"outlet_id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
	RecordedBy    string          `gorm:"size:32" json:"recorded_by"`
	SourceEventId string          `gorm:"size:64;uniqueIndex:uniq_expense_event" json:"source_event_id"`
	ReviewStatus  ReviewStatus    `gorm:"size:20;not null;default:PENDING" json:"review_status"`
	ReviewedBy    string          `gorm:"size:32" json:"reviewed_by"`
	ReviewNote    string          `gorm:"size:200" json:"review_note"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	ledgerWriteAttempts = 3
	ledgerWriteBackoff  = 150 * time.Millisecond
)

// RecordExpense writes one expense for the outlet-day. Transient DB errors
// are retried a bounded number of times; a duplicate on the source event id
// means an earlier attempt already landed and counts as success.
func RecordExpense(ctx context.Context, tradeDate time.Time, outletId int, name string, amount decimal.Decimal, by, sourceEventId string) (*DayExpense, error) {
	if outletId <= 0 || name == "" || tradeDate.IsZero() {
		return nil, ErrValidation
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, ErrValidation
	}

	state, err := GetPeriodState(ctx, tradeDate, outletId)
	if err != nil {
		return nil, ErrPeriodUnknown
	}
	if state == PeriodStateLocked {
		return nil, ErrPeriodLocked
	}

	row := DayExpense{
		TradeDate:     tradeDate,
		OutletId:      outletId,
		Name:          name,
		Amount:        amount,
		RecordedBy:    by,
		SourceEventId: sourceEventId,
		ReviewStatus:  ReviewStatusPending,
	}
	db := config.GetDB()
	var lastErr error
	for attempt := 0; attempt < ledgerWriteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(ledgerWriteBackoff * time.Duration(attempt)):
			}
		}
		err := db.WithContext(ctx).Create(&row).Error
		if err == nil {
			return &row, nil
		}
		if isDuplicateKeyErr(err) && sourceEventId != "" {
			var existing DayExpense
			if terr := db.WithContext(ctx).Where("source_event_id = ?", sourceEventId).Take(&existing).Error; terr != nil {
				return nil, terr
			}
			return &existing, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func ListExpenses(ctx context.Context, tradeDate time.Time, outletId int) ([]*DayExpense, error) {
	db := config.GetDB()
	var rows []*DayExpense
	if err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
