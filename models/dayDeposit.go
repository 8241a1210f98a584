package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/shopspring/decimal"
)

// DayDeposit is a banked cash confirmation pasted by an attendant. Same review
// and retry discipline as DayExpense.
type DayDeposit struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TradeDate     time.Time       `gorm:"type:date;not null;index:idx_deposit_day" json:"trade_date"`
	OutletId      int             `gorm:"not null;index:idx_deposit_day" json:"outlet_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"amount"`
	Reference     string          `gorm:"size:100" json:"reference"`
	RawText       string          `gorm:"size:500" json:"raw_text"`
	RecordedBy    string          `gorm:"size:32" json:"recorded_by"`
	SourceEventId string          `gorm:"size:64;uniqueIndex:uniq_deposit_event" json:"source_event_id"`
	ReviewStatus  ReviewStatus    `gorm:"size:20;not null;default:PENDING" json:"review_status"`
	ReviewedBy    string          `gorm:"size:32" json:"reviewed_by"`
	ReviewNote    string          `gorm:"size:200" json:"review_note"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func RecordDeposit(ctx context.Context, tradeDate time.Time, outletId int, amount decimal.Decimal, reference, rawText, by, sourceEventId string) (*DayDeposit, error) {
	if outletId <= 0 || tradeDate.IsZero() {
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

	row := DayDeposit{
		TradeDate:     tradeDate,
		OutletId:      outletId,
		Amount:        amount,
		Reference:     reference,
		RawText:       rawText,
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
			var existing DayDeposit
			if terr := db.WithContext(ctx).Where("source_event_id = ?", sourceEventId).Take(&existing).Error; terr != nil {
				return nil, terr
			}
			return &existing, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func ListDeposits(ctx context.Context, tradeDate time.Time, outletId int) ([]*DayDeposit, error) {
	db := config.GetDB()
	var rows []*DayDeposit
	if err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
