package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/flow"
	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type simulateRequest struct {
	Principal string `json:"principal" binding:"required"`
	Text      string `json:"text"`
	ReplyID   string `json:"reply_id"`
}

// devSimulateHandler feeds a message straight into the flow engine without the
// channel, so flows can be exercised from curl. The session is persisted the
// same way the webhook does it; only the dedupe gate is skipped (simulated
// events have no upstream event id to dedupe on).
func devSimulateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req simulateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		principal, err := utils.NormalizePrincipal(req.Principal)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "principal is not a valid phone number"})
			return
		}

		ctx := utils.SetPrincipalInContext(c.Request.Context(), principal)
		sess, err := models.LoadSession(ctx, principal)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session load failed"})
			return
		}

		next, reply := flow.Dispatch(ctx, sess, flow.Input{
			Text:    req.Text,
			ReplyID: req.ReplyID,
			EventId: "sim-" + uuid.NewString(),
		})
		if err := models.SaveSession(ctx, next); err != nil {
			config.LogError(config.GetLogger(), "dev.go", "devSimulateHandler", "SaveSession", principal, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
			return
		}

		out := gin.H{
			"principal": principal,
			"state":     next.State,
			"role":      next.Role,
		}
		if reply != nil {
			out["reply"] = gin.H{
				"text":    reply.Text,
				"buttons": reply.Buttons,
				"list":    reply.List,
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// devSessionHandler dumps a session for inspection, cursor included.
func devSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := utils.NormalizePrincipal(c.Param("principal"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "principal is not a valid phone number"})
			return
		}
		sess, err := models.LoadSession(c.Request.Context(), principal)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session load failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"principal":   sess.Principal,
			"role":        sess.Role,
			"bound_code":  sess.BoundCode,
			"outlet_id":   sess.OutletId,
			"state":       sess.State,
			"cursor_kind": sess.CursorKind,
			"cursor":      sess.Cursor(),
			"updated_at":  sess.UpdatedAt,
		})
	}
}
