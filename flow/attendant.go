package flow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
)

func attendantMenu(greeting string) *Reply {
	text := strings.TrimSpace(greeting + " What would you like to do?")
	return &Reply{
		Text: text,
		Buttons: []Button{
			{ID: "close", Title: "Closing count"},
			{ID: "expense", Title: "Record expense"},
			{ID: "deposit", Title: "Record deposit"},
		},
	}
}

// attendantDay resolves the attendant's outlet and its current trading date.
// The returned reply is non-nil when resolution failed.
func attendantDay(ctx context.Context, sess models.ChatSession) (*models.Outlet, time.Time, *Reply) {
	if sess.OutletId == nil {
		return nil, time.Time{}, textReply("Your code has no outlet assigned. Ask your supervisor to fix the roster.")
	}
	outlet, err := models.GetOutletById(ctx, *sess.OutletId)
	if err != nil {
		return nil, time.Time{}, retryReply()
	}
	return outlet, outlet.TradeDate, nil
}

func handleAttendant(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	switch sess.State {
	case models.SessionStateMenu, models.SessionStateIdle:
		return attendantFromMenu(ctx, sess, in)
	case models.SessionStateClosingPickItem:
		return attendantPickItem(ctx, sess, in)
	case models.SessionStateClosingQty:
		return attendantClosingQty(sess, in)
	case models.SessionStateClosingWaste:
		return attendantClosingWaste(ctx, sess, in)
	case models.SessionStateExpenseName:
		return attendantExpenseName(sess, in)
	case models.SessionStateExpenseAmount:
		return attendantExpenseAmount(ctx, sess, in)
	case models.SessionStateDepositPaste:
		return attendantDepositPaste(ctx, sess, in)
	}
	// Unknown state from an older build; reset to the menu, keep the draft.
	sess.State = models.SessionStateMenu
	return sess, attendantMenu("")
}

func attendantFromMenu(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	switch strings.ToLower(in.Token()) {
	case "close", "closing":
		return startClosing(ctx, sess, nil)
	case "expense":
		sess.State = models.SessionStateExpenseName
		sess.SetCursor(models.SessionCursor{Kind: models.CursorKindExpense, Expense: &models.ExpenseDraft{}})
		return sess, textReply("What was the expense for?")
	case "deposit":
		sess.State = models.SessionStateDepositPaste
		sess.SetCursor(models.SessionCursor{Kind: models.CursorKindDeposit, Deposit: &models.DepositDraft{Prompted: true}})
		return sess, textReply("Paste the bank transfer confirmation.")
	}
	return sess, attendantMenu("")
}

// startClosing builds the item picker and moves into the closing loop.
// doneKeys carries over within a session so re-entering the picker skips
// items already counted.
func startClosing(ctx context.Context, sess models.ChatSession, doneKeys []string) (models.ChatSession, *Reply) {
	_, tradeDate, failReply := attendantDay(ctx, sess)
	if failReply != nil {
		return sess, failReply
	}

	picker, remaining, err := buildClosingPicker(ctx, tradeDate, *sess.OutletId, doneKeys)
	if err != nil {
		return sess, retryReply()
	}
	if remaining == 0 {
		sess.State = models.SessionStateMenu
		sess.SetCursor(models.EmptyCursor())
		return sess, attendantMenu("All items are counted for today.")
	}

	sess.State = models.SessionStateClosingPickItem
	sess.SetCursor(models.SessionCursor{
		Kind:    models.CursorKindClosing,
		Closing: &models.ClosingDraft{DoneKeys: doneKeys},
	})
	return sess, picker
}

// buildClosingPicker prefers items with a positive effective opening; when the
// day has no opening data at all it falls back to the outlet's catalog minus
// items already closed.
func buildClosingPicker(ctx context.Context, tradeDate time.Time, outletId int, doneKeys []string) (*Reply, int, error) {
	closed, err := models.ClosedItemKeys(ctx, tradeDate, outletId)
	if err != nil {
		return nil, 0, err
	}
	for _, k := range doneKeys {
		closed[k] = true
	}

	items, err := models.ListItemsForOutlet(ctx, outletId)
	if err != nil {
		return nil, 0, err
	}
	nameByKey := make(map[string]string, len(items))
	for _, it := range items {
		nameByKey[it.ItemKey] = it.Name
	}

	effective, err := models.OpeningEffective(ctx, tradeDate, outletId)
	if err != nil {
		return nil, 0, err
	}

	var rows []ListRow
	for _, e := range effective {
		if closed[e.ItemKey] || !e.EffectiveQty.IsPositive() {
			continue
		}
		title := nameByKey[e.ItemKey]
		if title == "" {
			title = e.ItemKey
		}
		rows = append(rows, ListRow{
			ID:          e.ItemKey,
			Title:       title,
			Description: "opening " + e.EffectiveQty.String(),
		})
	}
	if len(effective) == 0 {
		for _, it := range items {
			if closed[it.ItemKey] {
				continue
			}
			rows = append(rows, ListRow{ID: it.ItemKey, Title: it.Name})
		}
	}

	reply := &Reply{
		Text: "Which item are you counting? Send \"done\" when finished.",
		List: &ListPrompt{ButtonTitle: "Choose item", Rows: rows},
	}
	return reply, len(rows), nil
}

func attendantPickItem(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	cursor := sess.Cursor()
	draft := cursor.Closing
	if draft == nil {
		draft = &models.ClosingDraft{}
	}
	token := in.Token()

	if strings.EqualFold(token, "done") {
		counted := len(draft.DoneKeys)
		sess.State = models.SessionStateMenu
		sess.SetCursor(models.EmptyCursor())
		if counted == 0 {
			return sess, attendantMenu("No items counted.")
		}
		return sess, attendantMenu("Closing recorded for " + itemCountWord(counted) + ".")
	}

	item, err := models.GetStockItemByKey(ctx, token)
	if err != nil {
		return sess, textReply("I don't know that item. Pick one from the list, or send \"done\".")
	}

	draft.ItemKey = item.ItemKey
	draft.ItemName = item.Name
	draft.Qty = nil
	sess.State = models.SessionStateClosingQty
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindClosing, Closing: draft})
	return sess, promptClosingQty(draft)
}

func promptClosingQty(draft *models.ClosingDraft) *Reply {
	return textReply("How many %s are left?", draft.ItemName)
}

func attendantClosingQty(sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	cursor := sess.Cursor()
	draft := cursor.Closing
	if draft == nil || draft.ItemKey == "" {
		sess.State = models.SessionStateMenu
		return sess, attendantMenu("")
	}

	qty, err := utils.ParseDecimal(in.Token())
	if err != nil || qty.IsNegative() {
		return sess, textReply("Send the remaining quantity as a number, like 12 or 3.5.")
	}

	draft.Qty = &qty
	sess.State = models.SessionStateClosingWaste
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindClosing, Closing: draft})
	return sess, promptClosingWaste(draft)
}

func promptClosingWaste(draft *models.ClosingDraft) *Reply {
	return textReply("Any waste for %s? Send the quantity, or 0.", draft.ItemName)
}

func attendantClosingWaste(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	cursor := sess.Cursor()
	draft := cursor.Closing
	if draft == nil || draft.ItemKey == "" || draft.Qty == nil {
		sess.State = models.SessionStateMenu
		return sess, attendantMenu("")
	}

	waste, err := utils.ParseDecimal(in.Token())
	if err != nil || waste.IsNegative() {
		return sess, textReply("Send the waste quantity as a number, or 0.")
	}

	_, tradeDate, failReply := attendantDay(ctx, sess)
	if failReply != nil {
		return sess, failReply
	}

	_, err = models.UpsertClosing(ctx, tradeDate, *sess.OutletId, draft.ItemKey, *draft.Qty, waste, sess.BoundCode)
	switch {
	case errors.Is(err, models.ErrPeriodLocked):
		sess.State = models.SessionStateMenu
		sess.SetCursor(models.EmptyCursor())
		return sess, textReply("Today's trading period is locked. No more counts can be recorded.")
	case errors.Is(err, models.ErrOverclose):
		effective, eerr := models.OpeningEffectiveForItem(ctx, tradeDate, *sess.OutletId, draft.ItemKey)
		draft.Qty = nil
		sess.State = models.SessionStateClosingQty
		sess.SetCursor(models.SessionCursor{Kind: models.CursorKindClosing, Closing: draft})
		if eerr != nil {
			return sess, textReply("That's more than the stock %s started with. How many are actually left?", draft.ItemName)
		}
		return sess, textReply("Count plus waste can't exceed the opening of %s for %s. How many are actually left?",
			effective.String(), draft.ItemName)
	case err != nil:
		return sess, retryReply()
	}

	done := append(draft.DoneKeys, draft.ItemKey)
	recorded := draft.ItemName
	next, reply := startClosing(ctx, sess, done)
	if reply != nil && reply.Text != "" {
		reply.Text = recorded + " recorded. " + reply.Text
	}
	return next, reply
}

func attendantExpenseName(sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return sess, textReply("What was the expense for?")
	}
	sess.State = models.SessionStateExpenseAmount
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindExpense, Expense: &models.ExpenseDraft{Name: name}})
	return sess, textReply("How much was spent on %s?", name)
}

func attendantExpenseAmount(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	cursor := sess.Cursor()
	draft := cursor.Expense
	if draft == nil || draft.Name == "" {
		sess.State = models.SessionStateExpenseName
		sess.SetCursor(models.SessionCursor{Kind: models.CursorKindExpense, Expense: &models.ExpenseDraft{}})
		return sess, textReply("What was the expense for?")
	}

	amount, err := utils.ParseDecimal(in.Token())
	if err != nil || !amount.IsPositive() {
		return sess, textReply("Send the amount as a number, like 12500.")
	}

	_, tradeDate, failReply := attendantDay(ctx, sess)
	if failReply != nil {
		return sess, failReply
	}

	_, err = models.RecordExpense(ctx, tradeDate, *sess.OutletId, draft.Name, amount, sess.BoundCode, in.EventId)
	switch {
	case errors.Is(err, models.ErrPeriodLocked):
		sess.State = models.SessionStateMenu
		sess.SetCursor(models.EmptyCursor())
		return sess, textReply("Today's trading period is locked. The expense was not recorded.")
	case err != nil:
		return sess, retryReply()
	}

	sess.State = models.SessionStateMenu
	sess.SetCursor(models.EmptyCursor())
	return sess, attendantMenu("Expense of " + amount.String() + " for " + draft.Name + " recorded, pending review.")
}

func attendantDepositPaste(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	amount, reference, err := ParseDepositText(in.Text)
	if err != nil {
		return sess, textReply("I couldn't read that. Paste the full transfer confirmation, including the amount.")
	}

	_, tradeDate, failReply := attendantDay(ctx, sess)
	if failReply != nil {
		return sess, failReply
	}

	_, err = models.RecordDeposit(ctx, tradeDate, *sess.OutletId, amount, reference, in.Text, sess.BoundCode, in.EventId)
	switch {
	case errors.Is(err, models.ErrPeriodLocked):
		sess.State = models.SessionStateMenu
		sess.SetCursor(models.EmptyCursor())
		return sess, textReply("Today's trading period is locked. The deposit was not recorded.")
	case err != nil:
		return sess, retryReply()
	}

	sess.State = models.SessionStateMenu
	sess.SetCursor(models.EmptyCursor())
	return sess, attendantMenu("Deposit of " + amount.String() + " recorded, pending review.")
}

// resumeAttendant re-prompts for whatever the carried draft was waiting on.
func resumeAttendant(ctx context.Context, sess models.ChatSession, prefix string) (models.ChatSession, *Reply) {
	cursor := sess.Cursor()
	switch cursor.Kind {
	case models.CursorKindClosing:
		draft := cursor.Closing
		if draft == nil {
			break
		}
		if draft.ItemKey != "" && draft.Qty != nil {
			sess.State = models.SessionStateClosingWaste
			reply := promptClosingWaste(draft)
			reply.Text = prefix + " " + reply.Text
			return sess, reply
		}
		if draft.ItemKey != "" {
			sess.State = models.SessionStateClosingQty
			reply := promptClosingQty(draft)
			reply.Text = prefix + " " + reply.Text
			return sess, reply
		}
		next, reply := startClosing(ctx, sess, draft.DoneKeys)
		if reply != nil {
			reply.Text = prefix + " " + reply.Text
		}
		return next, reply
	case models.CursorKindExpense:
		draft := cursor.Expense
		if draft != nil && draft.Name != "" {
			sess.State = models.SessionStateExpenseAmount
			return sess, textReply("%s How much was spent on %s?", prefix, draft.Name)
		}
		sess.State = models.SessionStateExpenseName
		return sess, textReply("%s What was the expense for?", prefix)
	case models.CursorKindDeposit:
		sess.State = models.SessionStateDepositPaste
		return sess, textReply("%s Paste the bank transfer confirmation.", prefix)
	}

	sess.State = models.SessionStateMenu
	sess.SetCursor(models.EmptyCursor())
	return sess, attendantMenu(prefix)
}

func itemCountWord(n int) string {
	if n == 1 {
		return "1 item"
	}
	return strconv.Itoa(n) + " items"
}
