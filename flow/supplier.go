package flow

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
)

func supplierMenu(greeting string) *Reply {
	text := strings.TrimSpace(greeting + " Ready to record a delivery?")
	return &Reply{
		Text:    text,
		Buttons: []Button{{ID: "supply", Title: "Record delivery"}},
	}
}

func handleSupplier(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	switch sess.State {
	case models.SessionStateMenu, models.SessionStateIdle:
		if strings.EqualFold(in.Token(), "supply") {
			return startSupply(ctx, sess)
		}
		return sess, supplierMenu("")
	case models.SessionStateSupplyPickOutlet:
		return supplierPickOutlet(ctx, sess, in)
	case models.SessionStateSupplyPickItem:
		return supplierPickItem(ctx, sess, in)
	case models.SessionStateSupplyQty:
		return supplierQty(sess, in)
	case models.SessionStateSupplyPrice:
		return supplierPrice(sess, in)
	case models.SessionStateSupplyUnit:
		return supplierUnit(ctx, sess, in)
	case models.SessionStateSupplyMore:
		return supplierMore(ctx, sess, in)
	}
	sess.State = models.SessionStateMenu
	return sess, supplierMenu("")
}

func startSupply(ctx context.Context, sess models.ChatSession) (models.ChatSession, *Reply) {
	outlets, err := models.ListOutlets(ctx)
	if err != nil {
		return sess, retryReply()
	}
	if len(outlets) == 0 {
		return sess, textReply("No outlets are configured yet.")
	}

	rows := make([]ListRow, 0, len(outlets))
	for _, o := range outlets {
		rows = append(rows, ListRow{ID: strconv.Itoa(o.ID), Title: o.Name})
	}
	sess.State = models.SessionStateSupplyPickOutlet
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindSupply, Supply: &models.SupplyDraft{}})
	return sess, &Reply{
		Text: "Which outlet is this delivery for?",
		List: &ListPrompt{ButtonTitle: "Choose outlet", Rows: rows},
	}
}

func supplyDraft(sess models.ChatSession) *models.SupplyDraft {
	cursor := sess.Cursor()
	if cursor.Supply != nil {
		return cursor.Supply
	}
	return &models.SupplyDraft{}
}

func saveSupplyDraft(sess *models.ChatSession, draft *models.SupplyDraft) {
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindSupply, Supply: draft})
}

func supplierPickOutlet(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	outletId, err := strconv.Atoi(in.Token())
	if err != nil || outletId <= 0 {
		return sess, textReply("Pick an outlet from the list.")
	}
	outlet, err := models.GetOutletById(ctx, outletId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return sess, textReply("Pick an outlet from the list.")
		}
		return sess, retryReply()
	}

	draft := supplyDraft(sess)
	draft.OutletId = outlet.ID
	saveSupplyDraft(&sess, draft)
	return supplierItemPicker(ctx, sess, "Delivering to "+outlet.Name+".")
}

func supplierItemPicker(ctx context.Context, sess models.ChatSession, prefix string) (models.ChatSession, *Reply) {
	draft := supplyDraft(sess)
	items, err := models.ListItemsForOutlet(ctx, draft.OutletId)
	if err != nil {
		return sess, retryReply()
	}
	if len(items) == 0 {
		return sess, textReply("That outlet has no catalog items yet.")
	}

	rows := make([]ListRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, ListRow{ID: it.ItemKey, Title: it.Name, Description: it.Unit})
	}
	sess.State = models.SessionStateSupplyPickItem
	saveSupplyDraft(&sess, draft)
	return sess, &Reply{
		Text: strings.TrimSpace(prefix + " What did you deliver?"),
		List: &ListPrompt{ButtonTitle: "Choose item", Rows: rows},
	}
}

func supplierPickItem(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	item, err := models.GetStockItemByKey(ctx, in.Token())
	if err != nil {
		return sess, textReply("I don't know that item. Pick one from the list.")
	}

	draft := supplyDraft(sess)
	draft.ItemKey = item.ItemKey
	draft.ItemName = item.Name
	draft.Unit = item.Unit
	draft.Qty = nil
	draft.BuyPrice = nil
	sess.State = models.SessionStateSupplyQty
	saveSupplyDraft(&sess, draft)
	return sess, textReply("How many %s?", item.Name)
}

func supplierQty(sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	draft := supplyDraft(sess)
	if draft.ItemKey == "" {
		sess.State = models.SessionStateMenu
		return sess, supplierMenu("")
	}

	qty, err := utils.ParseDecimal(in.Token())
	if err != nil || !qty.IsPositive() {
		return sess, textReply("Send the delivered quantity as a number, like 24.")
	}
	draft.Qty = &qty
	sess.State = models.SessionStateSupplyPrice
	saveSupplyDraft(&sess, draft)
	return sess, textReply("Buy price per unit for %s? Send the price, or \"skip\" to use the catalog price.", draft.ItemName)
}

func supplierPrice(sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	draft := supplyDraft(sess)
	if draft.Qty == nil {
		sess.State = models.SessionStateMenu
		return sess, supplierMenu("")
	}

	token := in.Token()
	if !strings.EqualFold(token, "skip") {
		price, err := utils.ParseDecimal(token)
		if err != nil || price.IsNegative() {
			return sess, textReply("Send the price as a number, or \"skip\".")
		}
		draft.BuyPrice = &price
	}
	sess.State = models.SessionStateSupplyUnit
	saveSupplyDraft(&sess, draft)
	unitHint := draft.Unit
	if unitHint == "" {
		unitHint = "unit"
	}
	return sess, textReply("Unit? Send it, or \"skip\" to keep \"%s\".", unitHint)
}

func supplierUnit(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	draft := supplyDraft(sess)
	if draft.Qty == nil || draft.ItemKey == "" {
		sess.State = models.SessionStateMenu
		return sess, supplierMenu("")
	}

	token := in.Token()
	if !strings.EqualFold(token, "skip") && token != "" {
		draft.Unit = token
	}

	outlet, err := models.GetOutletById(ctx, draft.OutletId)
	if err != nil {
		return sess, retryReply()
	}

	result, err := models.PostOpeningItem(ctx, outlet.TradeDate, draft.OutletId, draft.ItemKey,
		*draft.Qty, draft.BuyPrice, draft.Unit, models.PostModeAdd, sess.BoundCode)
	switch {
	case errors.Is(err, models.ErrOpeningLocked):
		draft.ItemKey = ""
		draft.ItemName = ""
		draft.Qty = nil
		draft.BuyPrice = nil
		sess.State = models.SessionStateSupplyMore
		saveSupplyDraft(&sess, draft)
		return sess, supplyMoreReply("That item's opening is already locked for today, nothing was added.")
	case err != nil:
		return sess, retryReply()
	}

	if !containsKey(draft.TouchedKeys, draft.ItemKey) {
		draft.TouchedKeys = append(draft.TouchedKeys, draft.ItemKey)
	}
	recorded := draft.ItemName + ": " + result.TotalQty.String()
	draft.ItemKey = ""
	draft.ItemName = ""
	draft.Qty = nil
	draft.BuyPrice = nil
	sess.State = models.SessionStateSupplyMore
	saveSupplyDraft(&sess, draft)
	return sess, supplyMoreReply(recorded + " recorded.")
}

func supplyMoreReply(prefix string) *Reply {
	return &Reply{
		Text: strings.TrimSpace(prefix + " Anything else in this delivery?"),
		Buttons: []Button{
			{ID: "more", Title: "Add another item"},
			{ID: "done", Title: "Finish delivery"},
		},
	}
}

func supplierMore(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	draft := supplyDraft(sess)
	switch strings.ToLower(in.Token()) {
	case "more":
		return supplierItemPicker(ctx, sess, "")
	case "done":
		outlet, err := models.GetOutletById(ctx, draft.OutletId)
		if err != nil {
			return sess, textReply("Couldn't finish the delivery. Send \"done\" again.")
		}
		locked, err := models.LockOpeningRows(ctx, outlet.TradeDate, draft.OutletId, draft.TouchedKeys, sess.BoundCode)
		if err != nil {
			return sess, textReply("Couldn't finish the delivery. Send \"done\" again.")
		}
		sess.State = models.SessionStateMenu
		sess.SetCursor(models.EmptyCursor())
		return sess, supplierMenu("Delivery submitted, " + strconv.FormatInt(locked, 10) + " item(s) locked in.")
	}
	return sess, supplyMoreReply("")
}

// resumeSupplier re-enters the batch at whichever prompt the draft was on.
func resumeSupplier(ctx context.Context, sess models.ChatSession, prefix string) (models.ChatSession, *Reply) {
	draft := supplyDraft(sess)
	switch {
	case draft.OutletId == 0:
		next, reply := startSupply(ctx, sess)
		if reply != nil {
			reply.Text = prefix + " " + reply.Text
		}
		return next, reply
	case draft.ItemKey == "":
		if len(draft.TouchedKeys) > 0 {
			sess.State = models.SessionStateSupplyMore
			saveSupplyDraft(&sess, draft)
			return sess, supplyMoreReply(prefix)
		}
		return supplierItemPicker(ctx, sess, prefix)
	case draft.Qty == nil:
		sess.State = models.SessionStateSupplyQty
		saveSupplyDraft(&sess, draft)
		return sess, textReply("%s How many %s?", prefix, draft.ItemName)
	case draft.BuyPrice == nil:
		sess.State = models.SessionStateSupplyPrice
		saveSupplyDraft(&sess, draft)
		return sess, textReply("%s Buy price per unit for %s? Send the price, or \"skip\".", prefix, draft.ItemName)
	default:
		sess.State = models.SessionStateSupplyUnit
		saveSupplyDraft(&sess, draft)
		return sess, textReply("%s Unit for %s? Send it, or \"skip\".", prefix, draft.ItemName)
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
