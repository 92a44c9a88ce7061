package judge

import (
	"fmt"
	"strings"

	"github.com/chadiek/interview-demo/internal/interview"
)

func turnPrompt(transcript string, state interview.TurnState) string {
	var b strings.Builder
	b.WriteString("You are an AI interviewer conducting a screening interview for a Sales Development Representative role.\n\n")
	fmt.Fprintf(&b, "Current question (%d of %d): %s\n", state.QuestionIndex+1, state.TotalQuestions, state.CurrentQuestion)
	fmt.Fprintf(&b, "Time elapsed: %d seconds. Questions remaining: %d.\n\n", state.TimeElapsedSec, state.QuestionsRemaining)
	fmt.Fprintf(&b, "The candidate answered:\n\"%s\"\n\n", transcript)
	b.WriteString(`Evaluate the answer and decide what to do next. Respond with ONLY a JSON object, no other text:
{
  "responseQuality": "complete" | "incomplete" | "off-topic",
  "action": "follow_up" | "next" | "wrap_up",
  "message": "<what you say to the candidate next>",
  "reasoning": "<one sentence on why>"
}

Rules:
- "follow_up" only when one short clarification would materially improve the answer.
- "next" when the answer is usable; keep the message to one or two sentences.
- "wrap_up" when the interview should end now.
- The message is spoken aloud, so keep it natural and brief.`)
	return b.String()
}

// ScoringPrompt builds the terminal whole-interview scoring prompt.
func ScoringPrompt(transcript string, responses []interview.ResponseRecord) string {
	var b strings.Builder
	b.WriteString("You are evaluating a completed screening interview for a Sales Development Representative role.\n\n")
	b.WriteString("Full transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nIndividual answers:\n")
	for i, r := range responses {
		kind := "answer"
		if r.IsFollowUp {
			kind = "follow-up answer"
		}
		fmt.Fprintf(&b, "%d. [%s] Q: %s\n   A (%s, %d words): %s\n", i+1, r.QuestionID, r.QuestionText, kind, r.WordCount, r.ResponseText)
	}
	b.WriteString(`
Score the candidate. Respond with ONLY a JSON object, no other text:
{
  "overallScore": <0-10>,
  "categoryScores": {
    "communication": <0-10>,
    "salesKnowledge": <0-10>,
    "problemSolving": <0-10>,
    "professionalism": <0-10>
  },
  "questionScores": [
    {"questionId": "<id>", "question": "<text>", "response": "<text>", "score": <1-10>, "feedback": "<one sentence>"}
  ],
  "summary": "<two or three sentences>",
  "recommendations": ["<short actionable item>", ...],
  "decision": "hire" | "maybe" | "no_hire"
}

Scoring guidance:
- 7.5 and above is hire territory, 6.0 to 7.5 is maybe, below 6.0 is no_hire.
- "[No response provided]" answers score low but are not disqualifying on their own.
- Weigh concrete sales technique over polish.`)
	return b.String()
}
