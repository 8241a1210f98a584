package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"gorm.io/gorm"
)

var ErrDayClosed = errors.New("trading day already closed")

// TradingPeriodLock marks an outlet-day as closed to attendant writes.
// Presence of the row is the lock; there is no unlocked row state.
type TradingPeriodLock struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_period_lock" json:"trade_date"`
	OutletId  int       `gorm:"not null;uniqueIndex:uniq_period_lock" json:"outlet_id"`
	LockedAt  time.Time `gorm:"not null" json:"locked_at"`
	LockedBy  string    `gorm:"size:32" json:"locked_by"`
}

// TradingCloseCount tracks how many close counts an outlet-day has absorbed.
// Zero or missing means the day is untouched, one means the midday rotation
// ran, two means the day is fully closed.
type TradingCloseCount struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_close_count" json:"trade_date"`
	OutletId  int       `gorm:"not null;uniqueIndex:uniq_close_count" json:"outlet_id"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PeriodSnapshot is the audit record cut at each rotation: the closings and
// openings as they stood the moment the rotation committed.
type PeriodSnapshot struct {
	ID        int           `gorm:"primary_key" json:"id"`
	TradeDate time.Time     `gorm:"type:date;not null;index" json:"trade_date"`
	OutletId  int           `gorm:"not null;index" json:"outlet_id"`
	Phase     RotationPhase `gorm:"size:20;not null" json:"phase"`
	Closings  []byte        `gorm:"type:json" json:"closings"`
	Openings  []byte        `gorm:"type:json" json:"openings"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

type RotationPhase string

const (
	RotationPhaseNone       RotationPhase = "NONE"
	RotationPhaseFirstDone  RotationPhase = "FIRST_DONE"
	RotationPhaseSecondDone RotationPhase = "SECOND_DONE"
)

// NextRotationPhase decides what a close count does to the outlet-day. The
// first count of a normal day rotates midday stock; the second count, or a
// first count flagged end-of-day, closes the day outright. A third count has
// nowhere to go.
func NextRotationPhase(count int, endOfDay bool) (RotationPhase, error) {
	switch {
	case count >= 2:
		return RotationPhaseNone, ErrDayClosed
	case count == 1:
		return RotationPhaseSecondDone, nil
	case endOfDay:
		return RotationPhaseSecondDone, nil
	default:
		return RotationPhaseFirstDone, nil
	}
}

// GetPeriodState reports whether the outlet-day accepts attendant writes.
func GetPeriodState(ctx context.Context, tradeDate time.Time, outletId int) (PeriodState, error) {
	db := config.GetDB()
	var lock TradingPeriodLock
	err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Take(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PeriodStateOpen, nil
	}
	if err != nil {
		return PeriodStateOpen, err
	}
	return PeriodStateLocked, nil
}

// LockTradingPeriod closes the outlet-day to further attendant writes.
// Locking an already-locked day is a no-op.
func LockTradingPeriod(ctx context.Context, tradeDate time.Time, outletId int, by string) error {
	db := config.GetDB()
	lock := TradingPeriodLock{
		TradeDate: tradeDate,
		OutletId:  outletId,
		LockedAt:  time.Now().UTC(),
		LockedBy:  by,
	}
	err := db.WithContext(ctx).Create(&lock).Error
	if err != nil && isDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func getCloseCount(ctx context.Context, db *gorm.DB, tradeDate time.Time, outletId int) (int, error) {
	var cc TradingCloseCount
	err := db.WithContext(ctx).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Take(&cc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cc.Count, nil
}

// RotationResult reports what StartTradingPeriod did.
type RotationResult struct {
	Phase         RotationPhase `json:"phase"`
	TradeDate     time.Time     `json:"trade_date"`
	NextTradeDate time.Time     `json:"next_trade_date"`
	RotatedItems  int           `json:"rotated_items"`
	SeededItems   int           `json:"seeded_items"`
}

// StartTradingPeriod runs one close count for the outlet's current trading
// date, inside a single transaction.
//
// First rotation (midday): every item with a closing count gets its opening
// quantity reset to that count, every opening lock on the day is cleared so
// suppliers can restock, the closing rows are consumed, and the day stays
// open on the same date.
//
// Second rotation (or a first flagged end-of-day): the day is locked, the
// outlet's trading date advances one day, and, when seeding is enabled,
// today's closings become tomorrow's unlocked openings.
func StartTradingPeriod(ctx context.Context, outletId int, endOfDay bool, by string) (*RotationResult, error) {
	outlet, err := GetOutletById(ctx, outletId)
	if err != nil {
		return nil, err
	}
	tradeDate := outlet.TradeDate

	db := config.GetDB()
	count, err := getCloseCount(ctx, db, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	phase, err := NextRotationPhase(count, endOfDay)
	if err != nil {
		return nil, err
	}

	result := &RotationResult{Phase: phase, TradeDate: tradeDate, NextTradeDate: tradeDate}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var closings []*StockClosing
		if err := tx.Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
			Order("item_key").Find(&closings).Error; err != nil {
			return err
		}
		var openings []*SupplyOpening
		if err := tx.Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
			Order("item_key").Find(&openings).Error; err != nil {
			return err
		}
		if err := writeSnapshot(tx, tradeDate, outletId, phase, closings, openings); err != nil {
			return err
		}

		switch phase {
		case RotationPhaseFirstDone:
			for _, c := range closings {
				res := tx.Model(&SupplyOpening{}).
					Where("trade_date = ? AND outlet_id = ? AND item_key = ?", tradeDate, outletId, c.ItemKey).
					Updates(map[string]interface{}{
						"qty":       c.ClosingQty,
						"locked_at": nil,
						"locked_by": "",
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					row := SupplyOpening{
						TradeDate: tradeDate,
						OutletId:  outletId,
						ItemKey:   c.ItemKey,
						Qty:       c.ClosingQty,
					}
					if err := tx.Create(&row).Error; err != nil {
						return err
					}
				}
				result.RotatedItems++
			}
			// Items never counted keep their quantity; only the lock clears.
			if err := tx.Model(&SupplyOpening{}).
				Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
				Updates(map[string]interface{}{"locked_at": nil, "locked_by": ""}).Error; err != nil {
				return err
			}
			if err := tx.Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
				Delete(&StockClosing{}).Error; err != nil {
				return err
			}
			return setCloseCount(tx, tradeDate, outletId, 1)

		case RotationPhaseSecondDone:
			lock := TradingPeriodLock{
				TradeDate: tradeDate,
				OutletId:  outletId,
				LockedAt:  time.Now().UTC(),
				LockedBy:  by,
			}
			if err := tx.Create(&lock).Error; err != nil && !isDuplicateKeyErr(err) {
				return err
			}
			nextDate := tradeDate.AddDate(0, 0, 1)
			result.NextTradeDate = nextDate
			if err := tx.Model(&Outlet{}).Where("id = ?", outletId).
				Update("trade_date", nextDate).Error; err != nil {
				return err
			}
			if config.SeedOpeningsOnRotation() {
				for _, c := range closings {
					if c.ClosingQty.IsZero() {
						continue
					}
					row := SupplyOpening{
						TradeDate: nextDate,
						OutletId:  outletId,
						ItemKey:   c.ItemKey,
						Qty:       c.ClosingQty,
					}
					if err := tx.Create(&row).Error; err != nil {
						if isDuplicateKeyErr(err) {
							continue
						}
						return err
					}
					result.SeededItems++
				}
			}
			return setCloseCount(tx, tradeDate, outletId, 2)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func setCloseCount(tx *gorm.DB, tradeDate time.Time, outletId, count int) error {
	res := tx.Model(&TradingCloseCount{}).
		Where("trade_date = ? AND outlet_id = ?", tradeDate, outletId).
		Update("count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		cc := TradingCloseCount{TradeDate: tradeDate, OutletId: outletId, Count: count}
		if err := tx.Create(&cc).Error; err != nil && !isDuplicateKeyErr(err) {
			return err
		}
	}
	return nil
}

func writeSnapshot(tx *gorm.DB, tradeDate time.Time, outletId int, phase RotationPhase, closings []*StockClosing, openings []*SupplyOpening) error {
	closingsJSON, err := json.Marshal(closings)
	if err != nil {
		return err
	}
	openingsJSON, err := json.Marshal(openings)
	if err != nil {
		return err
	}
	snap := PeriodSnapshot{
		TradeDate: tradeDate,
		OutletId:  outletId,
		Phase:     phase,
		Closings:  closingsJSON,
		Openings:  openingsJSON,
	}
	return tx.Create(&snap).Error
}
