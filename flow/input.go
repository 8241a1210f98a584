package flow

import (
	"fmt"
	"strings"
)

// Input is one admitted inbound event, already deduplicated and attributed to
// a principal by the webhook layer.
type Input struct {
	Text    string
	ReplyID string
	EventId string
}

// Token is the actionable token of the input: the interactive reply id when
// the user tapped a button or list row, else the trimmed text.
func (in Input) Token() string {
	if in.ReplyID != "" {
		return in.ReplyID
	}
	return strings.TrimSpace(in.Text)
}

// Reply is the outbound message the engine wants sent back. At most one of
// Buttons or List is set.
type Reply struct {
	Text    string
	Buttons []Button
	List    *ListPrompt
}

type Button struct {
	ID    string
	Title string
}

// ListPrompt renders as a channel list picker.
type ListPrompt struct {
	ButtonTitle string
	Rows        []ListRow
}

type ListRow struct {
	ID          string
	Title       string
	Description string
}

func textReply(format string, args ...interface{}) *Reply {
	if len(args) == 0 {
		return &Reply{Text: format}
	}
	return &Reply{Text: fmt.Sprintf(format, args...)}
}

// retryReply is the catch-all for persistence failures: state is left where
// it was so the same message can simply be sent again.
func retryReply() *Reply {
	return textReply("Sorry, that didn't save. Please send it again.")
}
