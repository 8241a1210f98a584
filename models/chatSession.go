package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"gorm.io/gorm"
)

const sessionCacheTTL = 15 * time.Minute

// ChatSession is the one record per messaging principal. The persisted copy
// is authoritative; redis only shaves the read latency on the hot path and is
// refreshed on every save.
type ChatSession struct {
	Principal  string       `gorm:"primaryKey;size:32" json:"principal"`
	Role       Role         `gorm:"size:20;not null;default:none" json:"role"`
	BoundCode  string       `gorm:"size:20" json:"bound_code"`
	OutletId   *int         `json:"outlet_id"`
	State      SessionState `gorm:"size:30;not null;default:LOGIN" json:"state"`
	CursorKind CursorKind   `gorm:"size:20;not null;default:none" json:"cursor_kind"`
	CursorJSON []byte       `gorm:"type:json" json:"cursor"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (s *ChatSession) Cursor() SessionCursor {
	return unmarshalCursor(s.CursorJSON)
}

func (s *ChatSession) SetCursor(c SessionCursor) {
	raw, err := c.marshal()
	if err != nil {
		// Drafts are plain data; marshal cannot realistically fail. Refuse to
		// persist a half-written cursor if it somehow does.
		return
	}
	s.CursorKind = c.Kind
	s.CursorJSON = raw
}

// Authenticated reports whether the session may reach role-requiring states.
// state consistency invariant: no bound code, no authenticated state.
func (s *ChatSession) Authenticated() bool {
	return s.BoundCode != "" && s.Role != RoleNone && s.Role != ""
}

func sessionCacheKey(principal string) string {
	return "ChatSession:" + principal
}

// NewSession is the LOGIN-state record for a first-contact principal.
func NewSession(principal string) ChatSession {
	s := ChatSession{
		Principal: principal,
		Role:      RoleNone,
		State:     SessionStateLogin,
	}
	s.SetCursor(EmptyCursor())
	return s
}

// LoadSession returns the session for principal, creating and persisting a
// LOGIN-state record on first contact. Redis is consulted first; the DB copy
// is authoritative on a cache miss.
func LoadSession(ctx context.Context, principal string) (ChatSession, error) {
	var cached ChatSession
	exists, err := config.GetRedisObject(sessionCacheKey(principal), &cached)
	if err == nil && exists {
		return cached, nil
	}
	// Cache errors are not fatal; fall through to the DB.

	db := config.GetDB()
	var sess ChatSession
	err = db.WithContext(ctx).Where("principal = ?", principal).Take(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sess = NewSession(principal)
		if cerr := db.WithContext(ctx).Create(&sess).Error; cerr != nil {
			if isDuplicateKeyErr(cerr) {
				// Concurrent first contact; the other request won the insert.
				if terr := db.WithContext(ctx).Where("principal = ?", principal).Take(&sess).Error; terr != nil {
					return ChatSession{}, terr
				}
			} else {
				return ChatSession{}, cerr
			}
		}
		err = nil
	}
	if err != nil {
		return ChatSession{}, err
	}
	cacheSession(sess)
	return sess, nil
}

// SaveSession persists the next session state and refreshes the cache.
func SaveSession(ctx context.Context, sess ChatSession) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(&sess).Error; err != nil {
		return err
	}
	cacheSession(sess)
	return nil
}

// LogoutSession clears identity back to LOGIN. A resumable cursor is kept on
// purpose: re-login must land the principal exactly where they left off.
func LogoutSession(ctx context.Context, sess ChatSession) (ChatSession, error) {
	sess.Role = RoleNone
	sess.BoundCode = ""
	sess.OutletId = nil
	sess.State = SessionStateLogin
	if !sess.Cursor().IsResumable() {
		sess.SetCursor(EmptyCursor())
	}
	if err := SaveSession(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// WipeSession is the administrative hard delete; normal flows only reset.
func WipeSession(ctx context.Context, principal string) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("principal = ?", principal).Delete(&ChatSession{}).Error; err != nil {
		return err
	}
	return config.RemoveRedisKey(sessionCacheKey(principal))
}

func cacheSession(sess ChatSession) {
	if err := config.SetRedisObject(sessionCacheKey(sess.Principal), &sess, sessionCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "chatSession.go", "cacheSession", "SetRedisObject", sess.Principal, err)
	}
}

func readSessionCache(principal string) (ChatSession, bool) {
	var sess ChatSession
	exists, err := config.GetRedisObject(sessionCacheKey(principal), &sess)
	if err != nil || !exists {
		return ChatSession{}, false
	}
	return sess, true
}
