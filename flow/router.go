package flow

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
)

// Dispatch runs one admitted input against the principal's session and
// returns the next session plus the reply to send. The caller persists the
// session; Dispatch never lets an error escape as anything but reply text.
func Dispatch(ctx context.Context, sess models.ChatSession, in Input) (models.ChatSession, *Reply) {
	token := in.Token()

	if sess.Authenticated() && strings.EqualFold(token, "logout") {
		return logout(sess)
	}

	if !sess.Authenticated() {
		return handleLogin(ctx, sess, in)
	}

	switch sess.Role {
	case models.RoleAttendant:
		return handleAttendant(ctx, sess, in)
	case models.RoleSupplier:
		return handleSupplier(ctx, sess, in)
	case models.RoleSupervisor:
		return handleSupervisor(ctx, sess, in)
	}

	// A role the router does not know means the record predates this build.
	// Drop back to login rather than guessing.
	sess.Role = models.RoleNone
	sess.BoundCode = ""
	sess.OutletId = nil
	sess.State = models.SessionStateLogin
	return sess, textReply("Please send your operator code to sign in.")
}

// logout clears identity but keeps any resumable draft so the next sign-in
// lands exactly where this one left off.
func logout(sess models.ChatSession) (models.ChatSession, *Reply) {
	sess.Role = models.RoleNone
	sess.BoundCode = ""
	sess.OutletId = nil
	sess.State = models.SessionStateLogin
	if !sess.Cursor().IsResumable() {
		sess.SetCursor(models.EmptyCursor())
	}
	return sess, textReply("Signed out. Send your operator code to sign in again.")
}
