package models

// Role of a messaging principal once an operator code is bound.
type Role string

const (
	RoleNone       Role = "none"
	RoleAttendant  Role = "attendant"
	RoleSupplier   Role = "supplier"
	RoleSupervisor Role = "supervisor"
)

// SessionState drives the per-role conversation grammar.
// LOGIN -> MENU -> {role substates} -> MENU is cyclic; IDLE is a reset target.
type SessionState string

const (
	SessionStateLogin SessionState = "LOGIN"
	SessionStateMenu  SessionState = "MENU"
	SessionStateIdle  SessionState = "IDLE"

	// Attendant substates.
	SessionStateClosingPickItem SessionState = "CLOSING_PICK_ITEM"
	SessionStateClosingQty      SessionState = "CLOSING_QTY"
	SessionStateClosingWaste    SessionState = "CLOSING_WASTE"
	SessionStateExpenseName     SessionState = "EXPENSE_NAME"
	SessionStateExpenseAmount   SessionState = "EXPENSE_AMOUNT"
	SessionStateDepositPaste    SessionState = "DEPOSIT_PASTE"

	// Supplier substates.
	SessionStateSupplyPickOutlet SessionState = "SUPPLY_PICK_OUTLET"
	SessionStateSupplyPickItem   SessionState = "SUPPLY_PICK_ITEM"
	SessionStateSupplyQty        SessionState = "SUPPLY_QTY"
	SessionStateSupplyPrice      SessionState = "SUPPLY_PRICE"
	SessionStateSupplyUnit       SessionState = "SUPPLY_UNIT"
	SessionStateSupplyMore       SessionState = "SUPPLY_MORE"
)

// ReceiptOutcome is what AdmitEvent reports for one delivery of an event id.
type ReceiptOutcome string

const (
	ReceiptOutcomeApplied          ReceiptOutcome = "applied"
	ReceiptOutcomeIgnoredDuplicate ReceiptOutcome = "ignored-duplicate"
)

// PostMode selects how an opening post combines with an existing row.
type PostMode string

const (
	PostModeAdd     PostMode = "add"
	PostModeReplace PostMode = "replace"
)

// ReviewStatus is the supervisor-queue lifecycle for expenses and deposits.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// PeriodState of an outlet-day. OPEN is the default when no lock row exists.
type PeriodState string

const (
	PeriodStateOpen   PeriodState = "OPEN"
	PeriodStateLocked PeriodState = "LOCKED"
)
