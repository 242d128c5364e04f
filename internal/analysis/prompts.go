package analysis

import (
	"fmt"
	"strings"
)

const basePrompt = `You analyze phone call transcripts for a business and return structured JSON.

Respond with a single JSON object, no prose, with exactly these keys:
  "sentiment":     one of "positive", "neutral", "negative"
  "outcome":       one of "appointment_booked", "callback_requested", "information_given", "not_interested", "wrong_number", "other"
  "lead_score":    integer 0-100, how likely this caller becomes a customer
  "topics":        array of short strings, the subjects discussed
  "action_items":  array of short strings, concrete follow-ups for staff
  "summary":       2-3 sentence summary of the call`

// businessContext adds domain framing per tenant vertical. Unknown types fall
// back to the generic prompt.
var businessContext = map[string]string{
	"dental": "The business is a dental practice. Pay attention to appointment requests, insurance questions, and pain or urgency signals.",
	"hvac":   "The business is an HVAC contractor. Pay attention to service calls, system age, emergency heating or cooling failures, and quote requests.",
	"legal":  "The business is a law firm. Pay attention to case type, urgency, and consultation scheduling. Do not include legal advice in the summary.",
	"salon":  "The business is a salon or spa. Pay attention to bookings, cancellations, and requested services or stylists.",
}

// SystemPrompt builds the analysis instruction for a tenant's vertical.
func SystemPrompt(businessType string) string {
	if ctx, ok := businessContext[strings.ToLower(strings.TrimSpace(businessType))]; ok {
		return basePrompt + "\n\n" + ctx
	}
	return basePrompt
}

// UserPrompt frames the transcript for the model.
func UserPrompt(req Request) string {
	var b strings.Builder
	if req.CallerName != "" {
		fmt.Fprintf(&b, "Caller: %s\n", req.CallerName)
	}
	if req.Duration > 0 {
		fmt.Fprintf(&b, "Call duration: %d seconds\n", req.Duration)
	}
	b.WriteString("Transcript:\n")
	b.WriteString(req.Transcript)
	return b.String()
}
