package handler

import (
	"context"
	"regexp"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|hiya|good (?:morning|afternoon|evening))\b`)
	thanksPattern   = regexp.MustCompile(`(?i)\b(?:thanks|thank you|thx|cheers|appreciate it)\b`)
	goodbyePattern  = regexp.MustCompile(`(?i)\b(?:bye|goodbye|see you|that's all|that is all)\b`)
)

const fallbackApology = "Sorry, I didn't quite catch that."

// generalHandler answers small talk and help requests without tools.
type generalHandler struct {
	help string
}

var _ contractx.Handler = (*generalHandler)(nil)

func (h *generalHandler) Handle(_ context.Context, req contractx.HandlerRequest) (contractx.HandlerOutput, error) {
	var reply string
	switch {
	case req.Decision.Fallback:
		reply = fallbackApology + " " + h.help
	case thanksPattern.MatchString(req.Utterance):
		reply = "You're welcome! Anything else I can find for you?"
	case goodbyePattern.MatchString(req.Utterance):
		reply = "Goodbye, and thanks for shopping with us."
	case greetingPattern.MatchString(req.Utterance):
		reply = "Hi! What can I find for you today?"
	default:
		reply = h.help
	}
	return contractx.HandlerOutput{Reply: reply, TaskType: contractx.TaskGeneral}, nil
}
