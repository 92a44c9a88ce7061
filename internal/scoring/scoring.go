package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/chadiek/interview-demo/internal/interview"
	"github.com/chadiek/interview-demo/internal/judge"
)

// Decision thresholds on the overall score.
const (
	hireThreshold  = 7.5
	maybeThreshold = 6.0
)

// Coordinator produces the terminal scoring result. The judge path is
// primary; any failure there degrades to a deterministic local fallback, so
// Score never fails and an interview always ends with a result.
type Coordinator struct {
	gen judge.Generator
}

// NewCoordinator wraps a judge generator. gen may be nil, which forces the
// fallback path.
func NewCoordinator(gen judge.Generator) *Coordinator {
	return &Coordinator{gen: gen}
}

// Score implements interview.Scorer.
func (c *Coordinator) Score(ctx context.Context, transcript string, responses []interview.ResponseRecord) interview.ScoringResult {
	if c.gen != nil {
		res, err := c.scoreWithJudge(ctx, transcript, responses)
		if err == nil {
			return res
		}
		log.Printf("judge scoring failed, computing fallback: %v", err)
	}
	return Fallback(responses)
}

func (c *Coordinator) scoreWithJudge(ctx context.Context, transcript string, responses []interview.ResponseRecord) (interview.ScoringResult, error) {
	raw, err := c.gen.Generate(ctx, judge.ScoringPrompt(transcript, responses))
	if err != nil {
		return interview.ScoringResult{}, err
	}
	res, err := ParseScoring(raw)
	if err != nil {
		return interview.ScoringResult{}, err
	}
	return Normalize(res), nil
}

// rawScoring tolerates the looseness of model output: scores may arrive as
// numbers or numeric strings.
type rawScoring struct {
	OverallScore    json.RawMessage            `json:"overallScore"`
	CategoryScores  map[string]json.RawMessage `json:"categoryScores"`
	QuestionScores  []rawQuestionScore         `json:"questionScores"`
	Summary         string                     `json:"summary"`
	Recommendations []string                   `json:"recommendations"`
	Decision        string                     `json:"decision"`
}

type rawQuestionScore struct {
	QuestionID string          `json:"questionId"`
	Question   string          `json:"question"`
	Response   string          `json:"response"`
	Score      json.RawMessage `json:"score"`
	Feedback   string          `json:"feedback"`
}

// ParseScoring decodes raw model text into an unvalidated scoring result.
func ParseScoring(raw string) (interview.ScoringResult, error) {
	obj, err := judge.ExtractJSON(raw)
	if err != nil {
		return interview.ScoringResult{}, err
	}
	var rs rawScoring
	if err := json.Unmarshal([]byte(obj), &rs); err != nil {
		return interview.ScoringResult{}, fmt.Errorf("decode scoring: %w", err)
	}
	res := interview.ScoringResult{
		OverallScore: coerceNumber(rs.OverallScore),
		CategoryScores: interview.CategoryScores{
			Communication:   coerceNumber(rs.CategoryScores["communication"]),
			SalesKnowledge:  coerceNumber(rs.CategoryScores["salesKnowledge"]),
			ProblemSolving:  coerceNumber(rs.CategoryScores["problemSolving"]),
			Professionalism: coerceNumber(rs.CategoryScores["professionalism"]),
		},
		Summary:         rs.Summary,
		Recommendations: rs.Recommendations,
		Decision:        interview.HireDecision(rs.Decision),
	}
	for _, qs := range rs.QuestionScores {
		res.QuestionScores = append(res.QuestionScores, interview.QuestionScore{
			QuestionID: qs.QuestionID,
			Question:   qs.Question,
			Response:   qs.Response,
			Score:      coerceNumber(qs.Score),
			Feedback:   qs.Feedback,
		})
	}
	return res, nil
}

// coerceNumber accepts 7, 7.5 or "7.5". Anything else is 0.
func coerceNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// Normalize clamps every score into range. A missing or invalid hire
// decision is recomputed from the overall score via the fixed thresholds; a
// valid one is kept even when it disagrees with the numbers.
func Normalize(res interview.ScoringResult) interview.ScoringResult {
	res.OverallScore = clamp(res.OverallScore, 0, 10)
	res.CategoryScores.Communication = clamp(res.CategoryScores.Communication, 0, 10)
	res.CategoryScores.SalesKnowledge = clamp(res.CategoryScores.SalesKnowledge, 0, 10)
	res.CategoryScores.ProblemSolving = clamp(res.CategoryScores.ProblemSolving, 0, 10)
	res.CategoryScores.Professionalism = clamp(res.CategoryScores.Professionalism, 0, 10)
	for i := range res.QuestionScores {
		res.QuestionScores[i].Score = clamp(res.QuestionScores[i].Score, 1, 10)
	}
	switch res.Decision {
	case interview.DecisionHire, interview.DecisionMaybe, interview.DecisionNoHire:
	default:
		res.Decision = decide(res.OverallScore)
	}
	if res.Summary == "" {
		res.Summary = "Interview evaluated."
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return res
}

// Fallback computes a deterministic score from response length and
// completeness alone. Same inputs always produce the same result. Each
// question asked yields exactly one entry; a follow-up record folds into its
// question's entry as a one-point boost to the main answer's score.
func Fallback(responses []interview.ResponseRecord) interview.ScoringResult {
	var qs []interview.QuestionScore
	entries := make(map[string]int)
	var sum float64
	for _, r := range responses {
		if r.IsFollowUp {
			if i, ok := entries[r.QuestionID]; ok {
				boosted := math.Min(qs[i].Score+1, 10)
				sum += boosted - qs[i].Score
				qs[i].Score = boosted
				continue
			}
		}
		score, feedback := fallbackQuestionScore(r)
		entries[r.QuestionID] = len(qs)
		qs = append(qs, interview.QuestionScore{
			QuestionID: r.QuestionID,
			Question:   r.QuestionText,
			Response:   r.ResponseText,
			Score:      score,
			Feedback:   feedback,
		})
		sum += score
	}
	avg := 5.0
	if len(qs) > 0 {
		avg = sum / float64(len(qs))
	}

	cats := interview.CategoryScores{
		Communication:   clamp(avg, 1, 10),
		SalesKnowledge:  clamp(avg-0.5, 1, 10),
		ProblemSolving:  clamp(avg, 1, 10),
		Professionalism: clamp(avg-0.2, 1, 10),
	}
	overall := round1(0.25*cats.Communication + 0.30*cats.SalesKnowledge + 0.25*cats.ProblemSolving + 0.20*cats.Professionalism)

	return interview.ScoringResult{
		OverallScore:   overall,
		CategoryScores: cats,
		QuestionScores: qs,
		Summary:        "Baseline evaluation computed from response length and completeness across all answers.",
		Recommendations: []string{
			"Practice structuring answers with a clear situation, action and result.",
			"Aim for fuller answers that address each part of the question.",
		},
		Decision: decide(overall),
		Fallback: true,
	}
}

func fallbackQuestionScore(r interview.ResponseRecord) (float64, string) {
	words := r.WordCount
	if r.ResponseText == interview.NoResponseSentinel {
		words = 0
	}
	base := math.Round(clamp(float64(words)/80*10, 2, 9))
	if words == 0 {
		return base, "No response provided."
	}
	var feedback string
	switch {
	case words < 20:
		feedback = "Response was too short to evaluate fully."
	case words < 60:
		feedback = "Adequate response with room for more depth."
	default:
		feedback = "Solid, detailed response."
	}
	return base, feedback
}

func decide(overall float64) interview.HireDecision {
	switch {
	case overall >= hireThreshold:
		return interview.DecisionHire
	case overall >= maybeThreshold:
		return interview.DecisionMaybe
	default:
		return interview.DecisionNoHire
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
