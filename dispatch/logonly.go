package dispatch

import (
	"context"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/flow"
	"github.com/sirupsen/logrus"
)

// LogDispatcher writes replies to the log instead of a channel. Used for
// local development and by the simulator, where no real WhatsApp credentials
// exist.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Send(_ context.Context, principal string, reply *flow.Reply) error {
	if reply == nil {
		return nil
	}
	fields := logrus.Fields{
		"principal": principal,
		"text":      reply.Text,
	}
	if reply.List != nil {
		fields["list_rows"] = len(reply.List.Rows)
	}
	if len(reply.Buttons) > 0 {
		fields["buttons"] = len(reply.Buttons)
	}
	config.GetLogger().WithFields(fields).Info("reply dispatched (log only)")
	config.RepliesDispatched.Inc()
	return nil
}
