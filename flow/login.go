package flow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
)

// handleLogin binds an operator code to the principal. Everything an
// unauthenticated session sends is treated as a code attempt.
func handleLogin(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	sess.State = models.SessionStateLogin
	code := strings.ToUpper(in.Token())
	if code == "" {
		return sess, textReply("Welcome. Send your operator code to sign in.")
	}

	op, err := models.GetOperatorByCode(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return sess, textReply("That code isn't recognized. Check it and send again.")
		}
		return sess, textReply("Sign-in is temporarily unavailable. Please try again.")
	}

	if op.Role == models.RoleAttendant && op.OutletId == nil {
		// An attendant with no outlet cannot do anything meaningful; refusing
		// here beats failing on the first closing.
		return sess, textReply("Your code has no outlet assigned. Ask your supervisor to fix the roster.")
	}

	sess.Role = op.Role
	sess.BoundCode = op.Code
	sess.OutletId = op.OutletId
	sess.State = models.SessionStateMenu

	if sess.Cursor().IsResumable() {
		return resumeAfterLogin(ctx, sess, op.Name)
	}

	switch op.Role {
	case models.RoleAttendant:
		reply := attendantMenu("Hello " + op.Name + ".")
		return sess, reply
	case models.RoleSupplier:
		return sess, supplierMenu("Hello " + op.Name + ".")
	case models.RoleSupervisor:
		return sess, supervisorHelp("Hello " + op.Name + ".")
	}
	return sess, textReply("Hello " + op.Name + ".")
}

// resumeAfterLogin drops the freshly signed-in principal back into the draft
// they were carrying when the previous session ended.
func resumeAfterLogin(ctx context.Context, sess models.ChatSession, name string) (models.ChatSession, *Reply) {
	cursor := sess.Cursor()
	switch cursor.Kind {
	case models.CursorKindClosing, models.CursorKindExpense, models.CursorKindDeposit:
		if sess.Role != models.RoleAttendant {
			// The draft belongs to a role this code does not carry.
			sess.SetCursor(models.EmptyCursor())
			break
		}
		return resumeAttendant(ctx, sess, "Welcome back "+name+". Picking up where you left off.")
	case models.CursorKindSupply:
		if sess.Role != models.RoleSupplier {
			sess.SetCursor(models.EmptyCursor())
			break
		}
		return resumeSupplier(ctx, sess, "Welcome back "+name+". Picking up where you left off.")
	}

	switch sess.Role {
	case models.RoleAttendant:
		return sess, attendantMenu("Hello " + name + ".")
	case models.RoleSupplier:
		return sess, supplierMenu("Hello " + name + ".")
	default:
		return sess, supervisorHelp("Hello " + name + ".")
	}
}
