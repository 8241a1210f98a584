package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOpeningLocked = errors.New("opening row is locked")
	ErrValidation    = errors.New("validation failed")
)

// SupplyOpening is the per (date, outlet, item) opening quantity. Once
// locked_at is set the row is immutable until an administrative unlock or a
// period rotation clears it.
type SupplyOpening struct {
	ID        int             `gorm:"primary_key" json:"id"`
	TradeDate time.Time       `gorm:"type:date;not null;uniqueIndex:uniq_opening" json:"trade_date"`
	OutletId  int             `gorm:"not null;uniqueIndex:uniq_opening" json:"outlet_id"`
	ItemKey   string          `gorm:"size:64;not null;uniqueIndex:uniq_opening" json:"item_key"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"qty"`
	Unit      string          `gorm:"size:20" json:"unit"`
	BuyPrice  decimal.Decimal `gorm:"type:decimal(20,6)" json:"buy_price"`
	LockedAt  *time.Time      `json:"locked_at"`
	LockedBy  string          `gorm:"size:32" json:"locked_by"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *SupplyOpening) Locked() bool {
	return s.LockedAt != nil
}

type OpeningPostResult struct {
	ExistedQty decimal.Decimal `json:"existed_qty"`
	TotalQty   decimal.Decimal `json:"total_qty"`
	Row        *SupplyOpening  `json:"row"`
}

// PostOpeningItem applies one supply post for (tradeDate, outletId, itemKey).
//
// Lock discipline ("first post wins", enforced by compare-and-set against
// locked_at IS NULL, never by a separate read-then-write):
//   - a locked row always rejects with ErrOpeningLocked, nothing mutated;
//   - replace mode creates the row locked, or overwrites-and-locks an
//     existing unlocked row in a single CAS update;
//   - add mode creates a fresh row unlocked (a supplier batch finishes with
//     an explicit submit-and-lock), but an add against an existing unlocked
//     row increments and locks it in the same write.
//
// Two racing first posts in replace mode: the insert's unique key picks the
// winner; the loser falls into the CAS update and loses that too.
func PostOpeningItem(ctx context.Context, tradeDate time.Time, outletId int, itemKey string, qty decimal.Decimal, buyPrice *decimal.Decimal, unit string, mode PostMode, by string) (*OpeningPostResult, error) {
	if outletId <= 0 || itemKey == "" {
		return nil, ErrValidation
	}
	if tradeDate.IsZero() {
		return nil, ErrValidation
	}
	if qty.IsNegative() || qty.IsZero() {
		return nil, ErrValidation
	}
	if mode != PostModeAdd && mode != PostModeReplace {
		return nil, ErrValidation
	}

	db := config.GetDB()
	now := time.Now().UTC()

	var existing SupplyOpening
	err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ? AND item_key = ?", tradeDate, outletId, itemKey).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := SupplyOpening{
			TradeDate: tradeDate,
			OutletId:  outletId,
			ItemKey:   itemKey,
			Qty:       qty,
			Unit:      unit,
		}
		if buyPrice != nil {
			row.BuyPrice = *buyPrice
		}
		if mode == PostModeReplace {
			row.LockedAt = &now
			row.LockedBy = by
		}
		cerr := db.WithContext(ctx).Create(&row).Error
		if cerr == nil {
			return &OpeningPostResult{ExistedQty: decimal.Zero, TotalQty: row.Qty, Row: &row}, nil
		}
		if !isDuplicateKeyErr(cerr) {
			return nil, cerr
		}
		// Lost a creation race; re-read and fall through to the CAS path.
		if terr := db.WithContext(ctx).
			Where("trade_date = ? AND outlet_id = ? AND item_key = ?", tradeDate, outletId, itemKey).
			Take(&existing).Error; terr != nil {
			return nil, terr
		}
	} else if err != nil {
		return nil, err
	}

	if existing.Locked() {
		return nil, ErrOpeningLocked
	}
	existedQty := existing.Qty

	updates := map[string]interface{}{
		"locked_at": now,
		"locked_by": by,
	}
	if mode == PostModeAdd {
		updates["qty"] = gorm.Expr("qty + ?", qty)
	} else {
		updates["qty"] = qty
	}
	if buyPrice != nil {
		updates["buy_price"] = *buyPrice
	}
	if unit != "" {
		updates["unit"] = unit
	}

	res := db.WithContext(ctx).Model(&SupplyOpening{}).
		Where("trade_date = ? AND outlet_id = ? AND item_key = ? AND locked_at IS NULL", tradeDate, outletId, itemKey).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another post won the lock between our read and the CAS.
		return nil, ErrOpeningLocked
	}

	var row SupplyOpening
	if err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ? AND item_key = ?", tradeDate, outletId, itemKey).
		Take(&row).Error; err != nil {
		return nil, err
	}
	return &OpeningPostResult{ExistedQty: existedQty, TotalQty: row.Qty, Row: &row}, nil
}

// ListOpenings returns the outlet-day's rows. Reading is always permitted
// regardless of lock state.
func ListOpenings(ctx context.Context, tradeDate time.Time, outletId int) ([]*SupplyOpening, error) {
	db := config.GetDB()
	var rows []*SupplyOpening
	if err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Order("item_key").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// OpeningEffectiveRow is the quantity an attendant may close against.
type OpeningEffectiveRow struct {
	ItemKey      string          `json:"item_key"`
	PriorClosing decimal.Decimal `json:"prior_closing_qty"`
	TodayOpening decimal.Decimal `json:"today_opening_qty"`
	EffectiveQty decimal.Decimal `json:"effective_qty"`
}

// OpeningEffective computes, per item, prior day's closing + today's opening.
func OpeningEffective(ctx context.Context, tradeDate time.Time, outletId int) ([]*OpeningEffectiveRow, error) {
	priorDate := tradeDate.AddDate(0, 0, -1)

	openings, err := ListOpenings(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	priorClosings, err := ListClosings(ctx, priorDate, outletId)
	if err != nil {
		return nil, err
	}

	byKey := map[string]*OpeningEffectiveRow{}
	order := []string{}
	for _, c := range priorClosings {
		byKey[c.ItemKey] = &OpeningEffectiveRow{ItemKey: c.ItemKey, PriorClosing: c.ClosingQty}
		order = append(order, c.ItemKey)
	}
	for _, o := range openings {
		row, ok := byKey[o.ItemKey]
		if !ok {
			row = &OpeningEffectiveRow{ItemKey: o.ItemKey}
			byKey[o.ItemKey] = row
			order = append(order, o.ItemKey)
		}
		row.TodayOpening = o.Qty
	}
	rows := make([]*OpeningEffectiveRow, 0, len(order))
	for _, key := range order {
		row := byKey[key]
		row.EffectiveQty = row.PriorClosing.Add(row.TodayOpening)
		rows = append(rows, row)
	}
	return rows, nil
}

// OpeningEffectiveForItem is the single-item form used by the closing guard.
func OpeningEffectiveForItem(ctx context.Context, tradeDate time.Time, outletId int, itemKey string) (decimal.Decimal, error) {
	rows, err := OpeningEffective(ctx, tradeDate, outletId)
	if err != nil {
		return decimal.Zero, err
	}
	for _, row := range rows {
		if row.ItemKey == itemKey {
			return row.EffectiveQty, nil
		}
	}
	return decimal.Zero, nil
}

// LockOpeningRows locks every given unlocked row for the outlet-day (the
// supplier's explicit submit action). Already-locked rows are left as they
// are; the returned count is how many this call locked.
func LockOpeningRows(ctx context.Context, tradeDate time.Time, outletId int, itemKeys []string, by string) (int64, error) {
	if len(itemKeys) == 0 {
		return 0, nil
	}
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&SupplyOpening{}).
		Where("trade_date = ? AND outlet_id = ? AND item_key IN ? AND locked_at IS NULL", tradeDate, outletId, itemKeys).
		Updates(map[string]interface{}{
			"locked_at": time.Now().UTC(),
			"locked_by": by,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// UnlockOpening clears locks administratively: one item when itemKey is
// non-empty, else the whole outlet-day.
func UnlockOpening(ctx context.Context, tradeDate time.Time, outletId int, itemKey string) (int64, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&SupplyOpening{}).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId)
	if itemKey != "" {
		q = q.Where("item_key = ?", itemKey)
	}
	res := q.Updates(map[string]interface{}{
		"locked_at": nil,
		"locked_by": "",
	})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
