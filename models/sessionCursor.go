package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CursorKind tags the one draft shape a session may carry. Resumption logic
// switches exhaustively on this tag instead of probing an open dictionary.
type CursorKind string

const (
	CursorKindNone    CursorKind = "none"
	CursorKindClosing CursorKind = "closing"
	CursorKindExpense CursorKind = "expense"
	CursorKindDeposit CursorKind = "deposit"
	CursorKindSupply  CursorKind = "supply"
	CursorKindLogin   CursorKind = "login"
)

// SessionCursor is the tagged union of in-progress draft shapes. Exactly the
// field matching Kind is non-nil; everything else stays nil.
type SessionCursor struct {
	Kind    CursorKind    `json:"kind"`
	Closing *ClosingDraft `json:"closing,omitempty"`
	Expense *ExpenseDraft `json:"expense,omitempty"`
	Deposit *DepositDraft `json:"deposit,omitempty"`
	Supply  *SupplyDraft  `json:"supply,omitempty"`
	Login   *LoginDraft   `json:"login,omitempty"`
}

// ClosingDraft: a chosen item moving through qty -> waste prompts.
// DoneKeys accumulates item keys already closed this day so the picker can
// exclude them.
type ClosingDraft struct {
	ItemKey  string           `json:"item_key"`
	ItemName string           `json:"item_name"`
	Qty      *decimal.Decimal `json:"qty,omitempty"`
	DoneKeys []string         `json:"done_keys,omitempty"`
}

// ExpenseDraft: Name filled means the amount prompt is pending.
type ExpenseDraft struct {
	Name string `json:"name"`
}

// DepositDraft: the paste prompt is pending while this draft exists.
type DepositDraft struct {
	Prompted bool `json:"prompted"`
}

// SupplyDraft: a supplier batch in flight. TouchedKeys are the opening rows
// posted this session, locked together by the explicit submit action.
type SupplyDraft struct {
	OutletId    int              `json:"outlet_id"`
	ItemKey     string           `json:"item_key,omitempty"`
	ItemName    string           `json:"item_name,omitempty"`
	Qty         *decimal.Decimal `json:"qty,omitempty"`
	BuyPrice    *decimal.Decimal `json:"buy_price,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	TouchedKeys []string         `json:"touched_keys,omitempty"`
}

// LoginDraft: nonce issued with a login link; matched on finalization.
type LoginDraft struct {
	Nonce string `json:"nonce"`
}

func EmptyCursor() SessionCursor {
	return SessionCursor{Kind: CursorKindNone}
}

// IsResumable reports whether the cursor holds recoverable draft data that a
// logout must preserve. A login nonce is not worth preserving.
func (c SessionCursor) IsResumable() bool {
	switch c.Kind {
	case CursorKindClosing, CursorKindExpense, CursorKindDeposit, CursorKindSupply:
		return true
	}
	return false
}

func (c SessionCursor) marshal() ([]byte, error) {
	return json.Marshal(c)
}

func unmarshalCursor(raw []byte) SessionCursor {
	if len(raw) == 0 {
		return EmptyCursor()
	}
	var c SessionCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		// A corrupt cursor must never wedge the session; drop the draft.
		return EmptyCursor()
	}
	if c.Kind == "" {
		c.Kind = CursorKindNone
	}
	return c
}
