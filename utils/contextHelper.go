package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/stockchat_backend/appctx"
)

// Alias the shared context key type so callers don't import appctx directly.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyPrincipal     = appctx.ContextKeyPrincipal
	ContextKeyOutletId      = appctx.ContextKeyOutletId
	ContextKeyOperatorCode  = appctx.ContextKeyOperatorCode
	ContextKeyEventId       = appctx.ContextKeyEventId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyIsAdmin       = appctx.ContextKeyIsAdmin
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetPrincipalFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyPrincipal)
}

func GetOutletIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyOutletId)
}

func GetOperatorCodeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOperatorCode)
}

func GetEventIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyEventId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsAdmin)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetPrincipalInContext(ctx context.Context, principal string) context.Context {
	return appctx.Set(ctx, ContextKeyPrincipal, principal)
}

func SetOutletIdInContext(ctx context.Context, outletId int) context.Context {
	return appctx.Set(ctx, ContextKeyOutletId, outletId)
}

func SetOperatorCodeInContext(ctx context.Context, code string) context.Context {
	return appctx.Set(ctx, ContextKeyOperatorCode, code)
}

func SetEventIdInContext(ctx context.Context, eventId string) context.Context {
	return appctx.Set(ctx, ContextKeyEventId, eventId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}
