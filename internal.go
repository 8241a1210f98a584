package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// requireAdmin guards ops endpoints with the JWT issued by /internal/ops/login.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("token")
		if token == "" {
			token = c.GetHeader("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		parsed, err := utils.JwtValidate(token)
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, ok := parsed.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetIsAdminInContext(c.Request.Context(), true)
		ctx = utils.SetPrincipalInContext(ctx, claims.Principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

type opsLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func opsLoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req opsLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		user, err := models.VerifyAdmin(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, models.ErrUnauthorized) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "try again later"})
			return
		}
		token, err := utils.JwtGenerate(user.Username, "admin", "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

type openingItemRequest struct {
	Date     string  `json:"date" binding:"required"`
	Outlet   int     `json:"outlet" binding:"required,gt=0"`
	ItemKey  string  `json:"item_key" binding:"required"`
	Qty      string  `json:"qty" binding:"required"`
	BuyPrice *string `json:"buy_price"`
	Unit     string  `json:"unit"`
	Mode     string  `json:"mode"`
}

func openingItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openingItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		tradeDate, err := utils.ParseTradeDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		qty, err := utils.ParseDecimal(req.Qty)
		if err != nil || !qty.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "qty must be a positive number"})
			return
		}
		var buyPrice *decimal.Decimal
		if req.BuyPrice != nil {
			p, err := utils.ParseDecimal(*req.BuyPrice)
			if err != nil || p.IsNegative() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "buy_price must be a non-negative number"})
				return
			}
			buyPrice = &p
		}
		mode := models.PostMode(req.Mode)
		if mode == "" {
			mode = models.PostModeReplace
		}
		if mode != models.PostModeAdd && mode != models.PostModeReplace {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be add or replace"})
			return
		}

		by, _ := utils.GetPrincipalFromContext(c.Request.Context())
		if by == "" {
			by = "internal"
		}
		result, err := models.PostOpeningItem(c.Request.Context(), tradeDate, req.Outlet, req.ItemKey, qty, buyPrice, req.Unit, mode, by)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrOpeningLocked):
				c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "opening-locked"})
			case errors.Is(err, models.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "persistence failure"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"existed_qty": result.ExistedQty,
			"total_qty":   result.TotalQty,
			"row":         result.Row,
		})
	}
}

func parseDayQuery(c *gin.Context) (time.Time, int, bool) {
	tradeDate, err := utils.ParseTradeDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, 0, false
	}
	outletId, err := strconv.Atoi(c.Query("outlet"))
	if err != nil || outletId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outlet must be a positive integer"})
		return time.Time{}, 0, false
	}
	return tradeDate, outletId, true
}

func openingListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tradeDate, outletId, ok := parseDayQuery(c)
		if !ok {
			return
		}
		rows, err := models.ListOpenings(c.Request.Context(), tradeDate, outletId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence failure"})
			return
		}
		out := make([]gin.H, 0, len(rows))
		for _, r := range rows {
			out = append(out, gin.H{
				"item_key":  r.ItemKey,
				"qty":       r.Qty,
				"unit":      r.Unit,
				"buy_price": r.BuyPrice,
				"locked":    r.Locked(),
				"locked_by": r.LockedBy,
			})
		}
		c.JSON(http.StatusOK, gin.H{"date": utils.FormatTradeDate(tradeDate), "outlet": outletId, "rows": out})
	}
}

func openingEffectiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tradeDate, outletId, ok := parseDayQuery(c)
		if !ok {
			return
		}
		rows, err := models.OpeningEffective(c.Request.Context(), tradeDate, outletId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence failure"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": utils.FormatTradeDate(tradeDate), "outlet": outletId, "rows": rows})
	}
}

type periodStartRequest struct {
	Outlet   int  `json:"outlet" binding:"required,gt=0"`
	EndOfDay bool `json:"end_of_day"`
}

func periodStartHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req periodStartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		by, _ := utils.GetPrincipalFromContext(c.Request.Context())
		if by == "" {
			by = "internal"
		}
		result, err := models.StartTradingPeriod(c.Request.Context(), req.Outlet, req.EndOfDay, by)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDayClosed):
				c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "day-already-closed"})
			case errors.Is(err, utils.ErrorRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "outlet not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "persistence failure"})
			}
			return
		}
		closeCount := 1
		if result.Phase == models.RotationPhaseSecondDone {
			closeCount = 2
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"close_count": closeCount,
			"details": gin.H{
				"phase":           result.Phase,
				"trade_date":      utils.FormatTradeDate(result.TradeDate),
				"next_trade_date": utils.FormatTradeDate(result.NextTradeDate),
				"rotated_items":   result.RotatedItems,
				"seeded_items":    result.SeededItems,
			},
		})
	}
}

type periodLockRequest struct {
	Date   string `json:"date" binding:"required"`
	Outlet int    `json:"outlet" binding:"required,gt=0"`
}

func periodLockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req periodLockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		tradeDate, err := utils.ParseTradeDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		by, _ := utils.GetPrincipalFromContext(c.Request.Context())
		if by == "" {
			by = "internal"
		}
		if err := models.LockTradingPeriod(c.Request.Context(), tradeDate, req.Outlet, by); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "persistence failure"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "state": models.PeriodStateLocked})
	}
}

type openingUnlockRequest struct {
	Date    string `json:"date" binding:"required"`
	Outlet  int    `json:"outlet" binding:"required,gt=0"`
	ItemKey string `json:"item_key"`
}

func openingUnlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openingUnlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		tradeDate, err := utils.ParseTradeDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		unlocked, err := models.UnlockOpening(c.Request.Context(), tradeDate, req.Outlet, req.ItemKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "persistence failure"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "unlocked": unlocked})
	}
}
