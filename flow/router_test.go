package flow

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests cover the engine branches that never touch persistence. The
// DB-backed paths are exercised by the docker-gated regression tests.

func attendantSession() models.ChatSession {
	outlet := 1
	sess := models.NewSession("959123456789")
	sess.Role = models.RoleAttendant
	sess.BoundCode = "AT01"
	sess.OutletId = &outlet
	sess.State = models.SessionStateMenu
	return sess
}

func TestLogoutPreservesResumableCursor(t *testing.T) {
	sess := attendantSession()
	qty := decimal.NewFromInt(4)
	sess.State = models.SessionStateClosingWaste
	sess.SetCursor(models.SessionCursor{
		Kind:    models.CursorKindClosing,
		Closing: &models.ClosingDraft{ItemKey: "chicken-whole", ItemName: "Whole chicken", Qty: &qty},
	})

	next, reply := Dispatch(context.Background(), sess, Input{Text: "logout"})

	require.NotNil(t, reply)
	assert.False(t, next.Authenticated())
	assert.Equal(t, models.SessionStateLogin, next.State)
	assert.Empty(t, next.BoundCode)
	assert.Nil(t, next.OutletId)

	cursor := next.Cursor()
	require.Equal(t, models.CursorKindClosing, cursor.Kind)
	require.NotNil(t, cursor.Closing)
	assert.Equal(t, "chicken-whole", cursor.Closing.ItemKey)
	assert.NotNil(t, cursor.Closing.Qty)
}

func TestLogoutDropsNonResumableCursor(t *testing.T) {
	sess := attendantSession()
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindLogin, Login: &models.LoginDraft{Nonce: "n1"}})

	next, _ := Dispatch(context.Background(), sess, Input{Text: "LOGOUT"})
	assert.Equal(t, models.CursorKindNone, next.Cursor().Kind)
}

func TestUnauthenticatedEmptyMessagePromptsForCode(t *testing.T) {
	sess := models.NewSession("959123456789")
	next, reply := Dispatch(context.Background(), sess, Input{Text: "   "})

	require.NotNil(t, reply)
	assert.Equal(t, models.SessionStateLogin, next.State)
	assert.Contains(t, reply.Text, "operator code")
}

func TestInteractiveReplyIdWinsOverText(t *testing.T) {
	in := Input{Text: "some stray caption", ReplyID: "close"}
	assert.Equal(t, "close", in.Token())

	in = Input{Text: "  AT01  "}
	assert.Equal(t, "AT01", in.Token())
}

func TestClosingQtyRejectsNonNumbers(t *testing.T) {
	sess := attendantSession()
	sess.State = models.SessionStateClosingQty
	sess.SetCursor(models.SessionCursor{
		Kind:    models.CursorKindClosing,
		Closing: &models.ClosingDraft{ItemKey: "chicken-whole", ItemName: "Whole chicken"},
	})

	next, reply := Dispatch(context.Background(), sess, Input{Text: "a few"})
	require.NotNil(t, reply)
	assert.Equal(t, models.SessionStateClosingQty, next.State, "state must hold for a retry")
	assert.Contains(t, reply.Text, "number")

	next, reply = Dispatch(context.Background(), sess, Input{Text: "-3"})
	require.NotNil(t, reply)
	assert.Equal(t, models.SessionStateClosingQty, next.State)
}

func TestClosingQtyAdvancesToWaste(t *testing.T) {
	sess := attendantSession()
	sess.State = models.SessionStateClosingQty
	sess.SetCursor(models.SessionCursor{
		Kind:    models.CursorKindClosing,
		Closing: &models.ClosingDraft{ItemKey: "chicken-whole", ItemName: "Whole chicken"},
	})

	next, reply := Dispatch(context.Background(), sess, Input{Text: "12"})
	require.NotNil(t, reply)
	assert.Equal(t, models.SessionStateClosingWaste, next.State)

	cursor := next.Cursor()
	require.NotNil(t, cursor.Closing)
	require.NotNil(t, cursor.Closing.Qty)
	assert.True(t, cursor.Closing.Qty.Equal(decimal.NewFromInt(12)))
}

func TestExpenseNameThenAmountPrompt(t *testing.T) {
	sess := attendantSession()
	sess.State = models.SessionStateExpenseName
	sess.SetCursor(models.SessionCursor{Kind: models.CursorKindExpense, Expense: &models.ExpenseDraft{}})

	next, reply := Dispatch(context.Background(), sess, Input{Text: "charcoal"})
	require.NotNil(t, reply)
	assert.Equal(t, models.SessionStateExpenseAmount, next.State)
	assert.Contains(t, reply.Text, "charcoal")

	cursor := next.Cursor()
	require.NotNil(t, cursor.Expense)
	assert.Equal(t, "charcoal", cursor.Expense.Name)
}

func TestSupplierQtyRejectsZero(t *testing.T) {
	sess := models.NewSession("959777888999")
	sess.Role = models.RoleSupplier
	sess.BoundCode = "SP01"
	sess.State = models.SessionStateSupplyQty
	sess.SetCursor(models.SessionCursor{
		Kind:   models.CursorKindSupply,
		Supply: &models.SupplyDraft{OutletId: 1, ItemKey: "rice-bag", ItemName: "Rice bag"},
	})

	next, reply := Dispatch(context.Background(), sess, Input{Text: "0"})
	require.NotNil(t, reply)
	assert.Equal(t, models.SessionStateSupplyQty, next.State)
}

func TestSupervisorUsageErrors(t *testing.T) {
	sess := models.NewSession("959555666777")
	sess.Role = models.RoleSupervisor
	sess.BoundCode = "SV01"
	sess.State = models.SessionStateMenu

	_, reply := Dispatch(context.Background(), sess, Input{Text: "APPROVE"})
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "APPROVE <ref>")

	_, reply = Dispatch(context.Background(), sess, Input{Text: "REJECT"})
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "REJECT <ref>")

	_, reply = Dispatch(context.Background(), sess, Input{Text: "SUMMARY yesterday"})
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "SUMMARY <date>")

	_, reply = Dispatch(context.Background(), sess, Input{Text: "what can you do"})
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "QUEUE")
}
