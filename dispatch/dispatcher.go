package dispatch

import (
	"context"

	"bitbucket.org/mmdatafocus/stockchat_backend/flow"
)

// Dispatcher delivers one reply to a principal. Delivery is best effort:
// ledger writes have already committed by the time a reply is sent, so a
// failed send is logged and counted, never retried into double-processing.
type Dispatcher interface {
	Send(ctx context.Context, principal string, reply *flow.Reply) error
}
