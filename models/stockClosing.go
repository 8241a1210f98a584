package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

var (
	ErrPeriodLocked  = errors.New("trading period is locked")
	ErrOverclose     = errors.New("closing exceeds effective opening")
	ErrPeriodUnknown = errors.New("trading period state unavailable")
)

// StockClosing is the per (date, outlet, item) end-of-shift count. Re-counting
// the same item overwrites; the last count before rotation is the one that
// carries forward.
type StockClosing struct {
	ID         int             `gorm:"primary_key" json:"id"`
	TradeDate  time.Time       `gorm:"type:date;not null;uniqueIndex:uniq_closing" json:"trade_date"`
	OutletId   int             `gorm:"not null;uniqueIndex:uniq_closing" json:"outlet_id"`
	ItemKey    string          `gorm:"size:64;not null;uniqueIndex:uniq_closing" json:"item_key"`
	ClosingQty decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"closing_qty"`
	WasteQty   decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"waste_qty"`
	RecordedBy string          `gorm:"size:32" json:"recorded_by"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertClosing records a count for the outlet-day. A locked period refuses
// the write, and so does a failure to determine the period state. The count
// plus waste may not exceed the effective opening for the item.
func UpsertClosing(ctx context.Context, tradeDate time.Time, outletId int, itemKey string, closingQty, wasteQty decimal.Decimal, by string) (*StockClosing, error) {
	if outletId <= 0 || itemKey == "" || tradeDate.IsZero() {
		return nil, ErrValidation
	}
	if closingQty.IsNegative() || wasteQty.IsNegative() {
		return nil, ErrValidation
	}

	state, err := GetPeriodState(ctx, tradeDate, outletId)
	if err != nil {
		return nil, ErrPeriodUnknown
	}
	if state == PeriodStateLocked {
		return nil, ErrPeriodLocked
	}

	effective, err := OpeningEffectiveForItem(ctx, tradeDate, outletId, itemKey)
	if err != nil {
		return nil, err
	}
	if closingQty.Add(wasteQty).GreaterThan(effective) {
		return nil, ErrOverclose
	}

	row := StockClosing{
		TradeDate:  tradeDate,
		OutletId:   outletId,
		ItemKey:    itemKey,
		ClosingQty: closingQty,
		WasteQty:   wasteQty,
		RecordedBy: by,
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "outlet_id"}, {Name: "item_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"closing_qty", "waste_qty", "recorded_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func ListClosings(ctx context.Context, tradeDate time.Time, outletId int) ([]*StockClosing, error) {
	db := config.GetDB()
	var rows []*StockClosing
	if err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Order("item_key").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClosedItemKeys is the set already counted today, for the picker to skip.
func ClosedItemKeys(ctx context.Context, tradeDate time.Time, outletId int) (map[string]bool, error) {
	rows, err := ListClosings(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(rows))
	for _, r := range rows {
		keys[r.ItemKey] = true
	}
	return keys, nil
}
