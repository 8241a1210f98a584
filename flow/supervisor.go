package flow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
)

func supervisorHelp(greeting string) *Reply {
	text := strings.TrimSpace(greeting + ` Commands:
QUEUE - pending expenses and deposits
APPROVE <ref> - approve a queue item, e.g. APPROVE E3
REJECT <ref> <note> - reject with a note
SUMMARY <date> OUTLET <name> - day summary, e.g. SUMMARY 2026-08-28 OUTLET Downtown
LOCK <outlet> - lock the outlet's current trading day`)
	return textReply(text)
}

// handleSupervisor parses the free-text command grammar. Supervisors stay in
// MENU; there is no multi-step draft to carry.
func handleSupervisor(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	sess.State = models.SessionStateMenu
	fields := strings.Fields(in.Text)
	if len(fields) == 0 {
		return sess, supervisorHelp("")
	}

	switch strings.ToUpper(fields[0]) {
	case "QUEUE":
		return sess, supervisorQueue(ctx)
	case "APPROVE":
		if len(fields) < 2 {
			return sess, textReply("Usage: APPROVE <ref>, e.g. APPROVE E3")
		}
		return sess, supervisorApprove(ctx, fields[1], sess.BoundCode)
	case "REJECT":
		if len(fields) < 2 {
			return sess, textReply("Usage: REJECT <ref> <note>, e.g. REJECT D2 wrong amount")
		}
		note := strings.Join(fields[2:], " ")
		return sess, supervisorReject(ctx, fields[1], sess.BoundCode, note)
	case "SUMMARY":
		return sess, supervisorSummary(ctx, fields[1:])
	case "LOCK":
		if len(fields) < 2 {
			return sess, textReply("Usage: LOCK <outlet name>")
		}
		return sess, supervisorLock(ctx, strings.Join(fields[1:], " "), sess.BoundCode)
	}
	return sess, supervisorHelp("")
}

func supervisorQueue(ctx context.Context) *Reply {
	pending, err := models.ListPendingReviews(ctx)
	if err != nil {
		return retryReply()
	}
	if len(pending) == 0 {
		return textReply("Nothing pending review.")
	}

	var b strings.Builder
	b.WriteString("Pending review:\n")
	for _, p := range pending {
		b.WriteString(p.Ref)
		b.WriteString("  ")
		b.WriteString(utils.FormatTradeDate(p.TradeDate))
		b.WriteString("  ")
		b.WriteString(p.Label)
		b.WriteString("  ")
		b.WriteString(p.Amount.String())
		b.WriteString("  by ")
		b.WriteString(p.RecordedBy)
		b.WriteString("\n")
	}
	b.WriteString("Reply APPROVE <ref> or REJECT <ref> <note>.")
	return textReply(b.String())
}

func supervisorApprove(ctx context.Context, ref, by string) *Reply {
	err := models.ApproveReview(ctx, ref, by)
	if errors.Is(err, models.ErrReviewNotFound) {
		return textReply("No pending item %s. Send QUEUE to see the list.", strings.ToUpper(ref))
	}
	if err != nil {
		return retryReply()
	}
	return textReply("%s approved.", strings.ToUpper(ref))
}

func supervisorReject(ctx context.Context, ref, by, note string) *Reply {
	err := models.RejectReview(ctx, ref, by, note)
	if errors.Is(err, models.ErrReviewNotFound) {
		return textReply("No pending item %s. Send QUEUE to see the list.", strings.ToUpper(ref))
	}
	if err != nil {
		return retryReply()
	}
	return textReply("%s rejected.", strings.ToUpper(ref))
}

func supervisorSummary(ctx context.Context, args []string) *Reply {
	usage := "Usage: SUMMARY <date> OUTLET <name>, e.g. SUMMARY 2026-08-28 OUTLET Downtown"
	if len(args) < 3 || !strings.EqualFold(args[1], "OUTLET") {
		return textReply(usage)
	}
	tradeDate, err := utils.ParseTradeDate(args[0])
	if err != nil {
		return textReply(usage)
	}
	outletName := strings.Join(args[2:], " ")
	outlet, err := models.GetOutletByName(ctx, outletName)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return textReply("No outlet named %q.", outletName)
		}
		return retryReply()
	}

	sum, err := models.GetDaySummary(ctx, tradeDate, outlet.ID)
	if err != nil {
		return retryReply()
	}

	var b strings.Builder
	b.WriteString(outlet.Name)
	b.WriteString(" ")
	b.WriteString(utils.FormatTradeDate(tradeDate))
	b.WriteString(" (")
	b.WriteString(string(sum.PeriodState))
	b.WriteString(")\n")
	if len(sum.Closings) == 0 {
		b.WriteString("No closing counts.\n")
	}
	for _, c := range sum.Closings {
		b.WriteString(c.ItemKey)
		b.WriteString(": closed ")
		b.WriteString(c.ClosingQty.String())
		if c.WasteQty.IsPositive() {
			b.WriteString(", waste ")
			b.WriteString(c.WasteQty.String())
		}
		b.WriteString("\n")
	}
	b.WriteString("Expenses: ")
	b.WriteString(sum.ExpenseTotal.String())
	b.WriteString(" across ")
	b.WriteString(itemCountWord(sum.ExpenseCount))
	b.WriteString("\nDeposits: ")
	b.WriteString(sum.DepositTotal.String())
	b.WriteString(" across ")
	b.WriteString(itemCountWord(sum.DepositCount))
	return textReply(b.String())
}

func supervisorLock(ctx context.Context, outletName, by string) *Reply {
	outlet, err := models.GetOutletByName(ctx, outletName)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return textReply("No outlet named %q.", outletName)
		}
		return retryReply()
	}
	if err := models.LockTradingPeriod(ctx, outlet.TradeDate, outlet.ID, by); err != nil {
		return retryReply()
	}
	return textReply("%s locked for %s. Attendant writes are refused until the day rotates.",
		outlet.Name, utils.FormatTradeDate(outlet.TradeDate))
}
