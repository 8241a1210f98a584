package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/dispatch"
	"bitbucket.org/mmdatafocus/stockchat_backend/flow"
	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/textgen"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// webhookEnvelope is the WhatsApp Cloud API change notification shape, pared
// down to what the pipeline consumes.
type webhookEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID string `json:"id"`
		} `json:"button_reply"`
		ListReply struct {
			ID string `json:"id"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

type inboundEvent struct {
	EventId string
	From    string
	Text    string
	ReplyID string
}

func parseWebhookEvents(body []byte) ([]inboundEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var events []inboundEvent
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				ev := inboundEvent{
					EventId: msg.ID,
					From:    msg.From,
					Text:    msg.Text.Body,
				}
				switch msg.Interactive.Type {
				case "button_reply":
					ev.ReplyID = msg.Interactive.ButtonReply.ID
				case "list_reply":
					ev.ReplyID = msg.Interactive.ListReply.ID
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

// webhookVerifyHandler answers the channel's subscription handshake.
func webhookVerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")
		if mode == "subscribe" && token != "" && token == os.Getenv("WHATSAPP_VERIFY_TOKEN") {
			c.String(http.StatusOK, challenge)
			return
		}
		c.Status(http.StatusForbidden)
	}
}

// webhookHandler is the single entry point for inbound messages. Per event:
// dedupe-gate, best-effort per-principal lock, session load, flow dispatch,
// session save, reply send. A receipt write failure is the only thing that
// fails the whole request; everything after admission resolves into a reply.
func webhookHandler(dispatcher dispatch.Dispatcher, polisher *textgen.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "webhook.go", "webhookHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusOK)
			return
		}
		events, err := parseWebhookEvents(body)
		if err != nil {
			config.LogError(logger, "webhook.go", "webhookHandler", "parseWebhookEvents", string(body), err)
			c.Status(http.StatusOK)
			return
		}

		for _, ev := range events {
			if status := processInbound(c.Request.Context(), ev, dispatcher, polisher); status >= 500 {
				// Non-2xx tells the channel to retry the whole batch; receipts
				// already admitted in it will be absorbed as duplicates.
				c.Status(status)
				return
			}
		}
		c.Status(http.StatusOK)
	}
}

func processInbound(ctx context.Context, ev inboundEvent, dispatcher dispatch.Dispatcher, polisher *textgen.Client) int {
	logger := config.GetLogger()

	if ev.EventId == "" || ev.From == "" {
		// Status callbacks and other non-message notifications land here.
		return http.StatusOK
	}

	principal, err := utils.NormalizePrincipal(ev.From)
	if err != nil {
		config.LogError(logger, "webhook.go", "processInbound", "NormalizePrincipal", ev.From, err)
		return http.StatusOK
	}

	admitted, err := models.AdmitEvent(ctx, ev.EventId)
	if err != nil {
		config.EventsRejected.Inc()
		config.LogError(logger, "webhook.go", "processInbound", "AdmitEvent", ev.EventId, err)
		return http.StatusInternalServerError
	}
	if !admitted {
		config.EventsDuplicate.Inc()
		return http.StatusOK
	}
	config.EventsAdmitted.Inc()

	// Best-effort per-principal serialization. Reliability must not depend on
	// Redis: the ledgers serialize themselves via DB unique keys and CAS.
	var lock *redislock.Lock
	if redisLock := config.GetRedisLock(); redisLock != nil {
		lock, err = redisLock.Obtain(ctx, "lock:principal:"+principal, 30*time.Second, nil)
		if err != nil {
			if err != redislock.ErrNotObtained {
				logger.WithFields(logrus.Fields{
					"field":     "processInbound",
					"principal": principal,
					"event_id":  ev.EventId,
				}).Warn("error obtaining redis lock; proceeding without it: " + err.Error())
			}
			lock = nil
		}
	}
	defer func() {
		if lock == nil {
			return
		}
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"field":     "processInbound",
				"principal": principal,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}()

	ctx = utils.SetPrincipalInContext(ctx, principal)
	ctx = utils.SetEventIdInContext(ctx, ev.EventId)

	sess, err := models.LoadSession(ctx, principal)
	ephemeral := false
	if err != nil {
		// The event is admitted; answer something rather than dropping it.
		config.LogError(logger, "webhook.go", "processInbound", "LoadSession", principal, err)
		sess = models.NewSession(principal)
		ephemeral = true
	}

	next, reply := flow.Dispatch(ctx, sess, flow.Input{
		Text:    ev.Text,
		ReplyID: ev.ReplyID,
		EventId: ev.EventId,
	})

	if !ephemeral {
		if err := models.SaveSession(ctx, next); err != nil {
			config.LogError(logger, "webhook.go", "processInbound", "SaveSession", principal, err)
			// The ledger write (if any) committed; only the conversational
			// position is stale. Ask the user to repeat the step.
			reply = &flow.Reply{Text: "Sorry, something went wrong on our side. Please send that again."}
		}
	}

	if reply != nil {
		if polisher != nil && reply.List == nil && len(reply.Buttons) == 0 {
			reply.Text = polisher.Polish(ctx, reply.Text)
		}
		// Fire and forget: failures are logged and counted by the dispatcher.
		_ = dispatcher.Send(ctx, principal, reply)
	}
	return http.StatusOK
}
