package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/flow"
)

const (
	graphAPIBase   = "https://graph.facebook.com/v18.0"
	maxListRows    = 10
	maxButtonCount = 3
)

// WhatsAppDispatcher sends replies through the WhatsApp Cloud API.
type WhatsAppDispatcher struct {
	client      *http.Client
	apiBase     string
	phoneId     string
	accessToken string
}

func NewWhatsAppDispatcher() *WhatsAppDispatcher {
	apiBase := os.Getenv("WHATSAPP_API_BASE")
	if apiBase == "" {
		apiBase = graphAPIBase
	}
	return &WhatsAppDispatcher{
		client:      &http.Client{Timeout: 15 * time.Second},
		apiBase:     apiBase,
		phoneId:     os.Getenv("WHATSAPP_PHONE_ID"),
		accessToken: os.Getenv("WHATSAPP_ACCESS_TOKEN"),
	}
}

func (d *WhatsAppDispatcher) Send(ctx context.Context, principal string, reply *flow.Reply) error {
	if reply == nil {
		return nil
	}
	payload := buildPayload(principal, reply)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", d.apiBase, d.phoneId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.accessToken)

	resp, err := d.client.Do(req)
	if err != nil {
		config.DispatchFailures.Inc()
		config.LogError(config.GetLogger(), "whatsapp.go", "Send", "client.Do", principal, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		config.DispatchFailures.Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("whatsapp send failed: status %d: %s", resp.StatusCode, string(respBody))
		config.LogError(config.GetLogger(), "whatsapp.go", "Send", "statusCode", principal, err)
		return err
	}
	config.RepliesDispatched.Inc()
	return nil
}

// buildPayload maps a reply onto the Cloud API message shapes: plain text,
// interactive buttons, or an interactive list. Overflowing rows and buttons
// are truncated to the channel's limits.
func buildPayload(principal string, reply *flow.Reply) map[string]interface{} {
	msg := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                principal,
	}

	switch {
	case reply.List != nil:
		rows := reply.List.Rows
		if len(rows) > maxListRows {
			rows = rows[:maxListRows]
		}
		apiRows := make([]map[string]interface{}, 0, len(rows))
		for _, r := range rows {
			row := map[string]interface{}{"id": r.ID, "title": r.Title}
			if r.Description != "" {
				row["description"] = r.Description
			}
			apiRows = append(apiRows, row)
		}
		msg["type"] = "interactive"
		msg["interactive"] = map[string]interface{}{
			"type": "list",
			"body": map[string]interface{}{"text": reply.Text},
			"action": map[string]interface{}{
				"button":   reply.List.ButtonTitle,
				"sections": []map[string]interface{}{{"rows": apiRows}},
			},
		}
	case len(reply.Buttons) > 0:
		buttons := reply.Buttons
		if len(buttons) > maxButtonCount {
			buttons = buttons[:maxButtonCount]
		}
		apiButtons := make([]map[string]interface{}, 0, len(buttons))
		for _, b := range buttons {
			apiButtons = append(apiButtons, map[string]interface{}{
				"type":  "reply",
				"reply": map[string]interface{}{"id": b.ID, "title": b.Title},
			})
		}
		msg["type"] = "interactive"
		msg["interactive"] = map[string]interface{}{
			"type":   "button",
			"body":   map[string]interface{}{"text": reply.Text},
			"action": map[string]interface{}{"buttons": apiButtons},
		}
	default:
		msg["type"] = "text"
		msg["text"] = map[string]interface{}{"body": reply.Text}
	}
	return msg
}
