package commands

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/render"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// Survey step names carried in the execution record payload.
const (
	surveyStepRating  = "rating"
	surveyStepComment = "comment"
)

var surveyRatingPattern = regexp.MustCompile(`^[1-5]$`)

// Survey runs a two-question feedback flow across turns. Each turn's payload
// records which answer the next message provides; the continuation machinery
// routes every message back here until the flow completes.
type Survey struct{}

func (c *Survey) Meta() command.Metadata {
	return command.Metadata{
		Key:   "survey",
		Match: []string{`^survey\b`},
	}
}

func (c *Survey) Execute(_ context.Context, call *command.Context) (command.Result, error) {
	loc := render.ForLocale(call.User.Locale)

	if !call.Continuing(c.Meta().Key) {
		return command.Result{
			Status:  storage.StatusPendingInput,
			Reply:   loc.Sprintf("reply.survey.rating"),
			Payload: map[string]string{"step": surveyStepRating},
		}, nil
	}

	prior := decodeSurveyPayload(call.Last.PayloadJSON)
	switch prior["step"] {
	case surveyStepRating:
		rating := strings.TrimSpace(call.Input)
		if !surveyRatingPattern.MatchString(rating) {
			return command.Result{
				Status:  storage.StatusPendingInput,
				Reply:   loc.Sprintf("reply.survey.rating_again"),
				Payload: map[string]string{"step": surveyStepRating},
			}, nil
		}
		return command.Result{
			Status: storage.StatusPendingInput,
			Reply:  loc.Sprintf("reply.survey.comment"),
			Payload: map[string]string{
				"step":   surveyStepComment,
				"rating": rating,
			},
		}, nil

	case surveyStepComment:
		rating := prior["rating"]
		return command.Result{
			Status: storage.StatusComplete,
			Reply:  loc.Sprintf("reply.survey.thanks", rating),
			Payload: map[string]string{
				"rating":  rating,
				"comment": strings.TrimSpace(call.Input),
			},
		}, nil

	default:
		// Unreadable or missing step: restart the flow rather than strand
		// the user mid-continuation.
		return command.Result{
			Status:  storage.StatusPendingInput,
			Reply:   loc.Sprintf("reply.survey.rating"),
			Payload: map[string]string{"step": surveyStepRating},
		}, nil
	}
}

func decodeSurveyPayload(raw string) map[string]string {
	payload := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return payload
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return map[string]string{}
	}
	return payload
}
