package interview

import "strings"

const wrapUpSuffix = "Thank you for your time. Let's wrap up the interview."

// DefaultDecision is the safe decision used whenever the judgment service is
// unreachable or returns unusable output. The interview must keep moving.
func DefaultDecision() TurnDecision {
	return TurnDecision{
		ResponseQuality: QualityIncomplete,
		Action:          ActionNext,
		Message:         "Thanks for your answer. Let's move on to the next question.",
	}
}

// NormalizeDecision applies the validation the caller must perform on any
// raw evaluator output: invalid quality defaults to incomplete, invalid
// action defaults to next, and once the elapsed ceiling is exceeded or no
// questions remain the action is forcibly wrap_up with a closing sentence
// appended when the message does not already convey closure.
func NormalizeDecision(dec TurnDecision, state TurnState, ceilingSec int) TurnDecision {
	switch dec.ResponseQuality {
	case QualityComplete, QualityIncomplete, QualityOffTopic:
	default:
		dec.ResponseQuality = QualityIncomplete
	}
	switch dec.Action {
	case ActionFollowUp, ActionNext, ActionWrapUp:
	default:
		dec.Action = ActionNext
	}
	if dec.Message == "" {
		dec.Message = DefaultDecision().Message
	}
	if (ceilingSec > 0 && state.TimeElapsedSec > ceilingSec) || state.QuestionsRemaining <= 0 {
		dec.Action = ActionWrapUp
		if !conveysClosure(dec.Message) {
			dec.Message = strings.TrimSpace(dec.Message) + " " + wrapUpSuffix
		}
	}
	return dec
}

func conveysClosure(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "wrap") || strings.Contains(m, "complete")
}
