// Package twilio parses inbound Twilio messaging webhooks and renders TwiML
// replies.
package twilio

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMissingSender reports a webhook payload without a From address.
var ErrMissingSender = errors.New("twilio: missing sender address")

// InboundMessage is the subset of Twilio's webhook form we act on.
type InboundMessage struct {
	MessageSID string
	From       string
	To         string
	Body       string
}

// ParseInbound decodes one Twilio messaging webhook request. Twilio posts
// application/x-www-form-urlencoded bodies.
func ParseInbound(r *http.Request) (InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return InboundMessage{}, fmt.Errorf("parse webhook form: %w", err)
	}

	message := InboundMessage{
		MessageSID: r.PostFormValue("MessageSid"),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
		Body:       r.PostFormValue("Body"),
	}
	if message.From == "" {
		return InboundMessage{}, ErrMissingSender
	}
	return message, nil
}

type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// WriteMessagingResponse writes a TwiML reply. An empty body produces an
// empty <Response/>, which Twilio treats as "send nothing".
func WriteMessagingResponse(w http.ResponseWriter, body string) error {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")

	payload, err := xml.Marshal(messagingResponse{Message: body})
	if err != nil {
		return fmt.Errorf("marshal twiml response: %w", err)
	}
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("write twiml header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write twiml body: %w", err)
	}
	return nil
}
