package judge

import (
	"context"
	"log"

	"github.com/chadiek/interview-demo/internal/interview"
)

// Generator is the one slice of the Gemini client the evaluator needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Evaluator judges one captured answer at a time. Transport and parse
// failures degrade to the default decision so the interview never stalls on
// the judge. A nil generator always produces the default.
type Evaluator struct {
	gen Generator
}

func NewEvaluator(gen Generator) *Evaluator {
	return &Evaluator{gen: gen}
}

// Evaluate implements interview.TurnEvaluator. It never returns an error for
// judge-side failures; the decision it returns is raw and the orchestrator
// normalizes it.
func (e *Evaluator) Evaluate(ctx context.Context, transcript string, state interview.TurnState) (interview.TurnDecision, error) {
	if e.gen == nil {
		return interview.DefaultDecision(), nil
	}
	raw, err := e.gen.Generate(ctx, turnPrompt(transcript, state))
	if err != nil {
		log.Printf("turn judgment request failed: %v", err)
		return interview.DefaultDecision(), nil
	}
	dec, err := ParseDecision(raw)
	if err != nil {
		log.Printf("turn judgment unparseable: %v", err)
		return interview.DefaultDecision(), nil
	}
	return dec, nil
}
