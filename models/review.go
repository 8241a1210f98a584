package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrReviewNotFound = errors.New("review item not found")

// PendingReview is one queue entry. Ref is what the supervisor types back to
// act on it: E<id> for expenses, D<id> for deposits.
type PendingReview struct {
	Ref        string          `json:"ref"`
	TradeDate  time.Time       `json:"trade_date"`
	OutletId   int             `json:"outlet_id"`
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	RecordedBy string          `json:"recorded_by"`
}

// ListPendingReviews returns every PENDING expense and deposit, expenses
// first, each in insertion order.
func ListPendingReviews(ctx context.Context) ([]*PendingReview, error) {
	db := config.GetDB()

	var expenses []*DayExpense
	if err := db.WithContext(ctx).
		Where("review_status = ?", ReviewStatusPending).
		Order("id").Find(&expenses).Error; err != nil {
		return nil, err
	}
	var deposits []*DayDeposit
	if err := db.WithContext(ctx).
		Where("review_status = ?", ReviewStatusPending).
		Order("id").Find(&deposits).Error; err != nil {
		return nil, err
	}

	out := make([]*PendingReview, 0, len(expenses)+len(deposits))
	for _, e := range expenses {
		out = append(out, &PendingReview{
			Ref:        fmt.Sprintf("E%d", e.ID),
			TradeDate:  e.TradeDate,
			OutletId:   e.OutletId,
			Label:      e.Name,
			Amount:     e.Amount,
			RecordedBy: e.RecordedBy,
		})
	}
	for _, d := range deposits {
		label := "deposit"
		if d.Reference != "" {
			label = "deposit " + d.Reference
		}
		out = append(out, &PendingReview{
			Ref:        fmt.Sprintf("D%d", d.ID),
			TradeDate:  d.TradeDate,
			OutletId:   d.OutletId,
			Label:      label,
			Amount:     d.Amount,
			RecordedBy: d.RecordedBy,
		})
	}
	return out, nil
}

func parseReviewRef(ref string) (kind byte, id int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if len(ref) < 2 || (ref[0] != 'E' && ref[0] != 'D') {
		return 0, 0, ErrReviewNotFound
	}
	id, aerr := strconv.Atoi(ref[1:])
	if aerr != nil || id <= 0 {
		return 0, 0, ErrReviewNotFound
	}
	return ref[0], id, nil
}

func resolveReview(ctx context.Context, ref string, status ReviewStatus, by, note string) error {
	kind, id, err := parseReviewRef(ref)
	if err != nil {
		return err
	}
	db := config.GetDB()
	updates := map[string]interface{}{
		"review_status": status,
		"reviewed_by":   by,
		"review_note":   note,
	}
	var res *gorm.DB
	switch kind {
	case 'E':
		res = db.WithContext(ctx).Model(&DayExpense{}).
			Where("id = ? AND review_status = ?", id, ReviewStatusPending).
			Updates(updates)
	case 'D':
		res = db.WithContext(ctx).Model(&DayDeposit{}).
			Where("id = ? AND review_status = ?", id, ReviewStatusPending).
			Updates(updates)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func ApproveReview(ctx context.Context, ref, by string) error {
	return resolveReview(ctx, ref, ReviewStatusApproved, by, "")
}

func RejectReview(ctx context.Context, ref, by, note string) error {
	return resolveReview(ctx, ref, ReviewStatusRejected, by, note)
}

// DaySummary aggregates one outlet-day for the supervisor: closings plus
// approved-or-pending money movements.
type DaySummary struct {
	TradeDate    time.Time             `json:"trade_date"`
	OutletId     int                   `json:"outlet_id"`
	Closings     []*StockClosing       `json:"closings"`
	Openings     []*SupplyOpening      `json:"openings"`
	Effective    []*OpeningEffectiveRow `json:"effective"`
	ExpenseTotal decimal.Decimal       `json:"expense_total"`
	DepositTotal decimal.Decimal       `json:"deposit_total"`
	ExpenseCount int                   `json:"expense_count"`
	DepositCount int                   `json:"deposit_count"`
	PeriodState  PeriodState           `json:"period_state"`
}

func GetDaySummary(ctx context.Context, tradeDate time.Time, outletId int) (*DaySummary, error) {
	closings, err := ListClosings(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	openings, err := ListOpenings(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	effective, err := OpeningEffective(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	expenses, err := ListExpenses(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	deposits, err := ListDeposits(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}
	state, err := GetPeriodState(ctx, tradeDate, outletId)
	if err != nil {
		return nil, err
	}

	sum := &DaySummary{
		TradeDate:   tradeDate,
		OutletId:    outletId,
		Closings:    closings,
		Openings:    openings,
		Effective:   effective,
		PeriodState: state,
	}
	for _, e := range expenses {
		if e.ReviewStatus == ReviewStatusRejected {
			continue
		}
		sum.ExpenseTotal = sum.ExpenseTotal.Add(e.Amount)
		sum.ExpenseCount++
	}
	for _, d := range deposits {
		if d.ReviewStatus == ReviewStatusRejected {
			continue
		}
		sum.DepositTotal = sum.DepositTotal.Add(d.Amount)
		sum.DepositCount++
	}
	return sum, nil
}
