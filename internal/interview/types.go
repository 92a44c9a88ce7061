package interview

import "time"

// Phase is the orchestrator's current state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSpeaking   Phase = "speaking"
	PhaseListening  Phase = "listening"
	PhaseEvaluating Phase = "evaluating"
	PhaseWrapUp     Phase = "wrap_up"
	PhaseCompleted  Phase = "completed"
)

// NoResponseSentinel is recorded when a turn resolves with an empty transcript.
const NoResponseSentinel = "[No response provided]"

// ResponseRecord is one answered turn (main answer or follow-up). Records are
// append-only and chronologically ordered; the orchestrator owns the canonical
// list and the store only ever receives copies.
type ResponseRecord struct {
	QuestionID      string    `json:"questionId"`
	QuestionText    string    `json:"questionText"`
	ResponseText    string    `json:"responseText"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"durationSeconds"`
	WordCount       int       `json:"wordCount"`
	IsFollowUp      bool      `json:"isFollowUp"`
}

// ResponseQuality classifies a candidate answer.
type ResponseQuality string

const (
	QualityComplete   ResponseQuality = "complete"
	QualityIncomplete ResponseQuality = "incomplete"
	QualityOffTopic   ResponseQuality = "off-topic"
)

// Action is what the evaluator wants the orchestrator to do next.
type Action string

const (
	ActionFollowUp Action = "follow_up"
	ActionNext     Action = "next"
	ActionWrapUp   Action = "wrap_up"
)

// TurnDecision is the evaluator's verdict on one answer. It is transient:
// only its effect (the action taken, the message spoken) reaches the
// transcript.
type TurnDecision struct {
	ResponseQuality ResponseQuality `json:"responseQuality"`
	Action          Action          `json:"action"`
	Message         string          `json:"message"`
	Reasoning       string          `json:"reasoning,omitempty"`
}

// TurnState is the interview context sent alongside a transcript for
// evaluation.
type TurnState struct {
	CurrentQuestion    string `json:"currentQuestion"`
	TimeElapsedSec     int    `json:"timeElapsedSec"`
	QuestionsRemaining int    `json:"questionsRemaining"`
	QuestionIndex      int    `json:"questionIndex"`
	TotalQuestions     int    `json:"totalQuestions"`
}

// HireDecision is the terminal hire/maybe/no_hire verdict.
type HireDecision string

const (
	DecisionHire   HireDecision = "hire"
	DecisionMaybe  HireDecision = "maybe"
	DecisionNoHire HireDecision = "no_hire"
)

// CategoryScores holds the fixed scoring categories, each 0-10.
type CategoryScores struct {
	Communication   float64 `json:"communication"`
	SalesKnowledge  float64 `json:"salesKnowledge"`
	ProblemSolving  float64 `json:"problemSolving"`
	Professionalism float64 `json:"professionalism"`
}

// QuestionScore is per-question feedback, 1-10.
type QuestionScore struct {
	QuestionID string  `json:"questionId"`
	Question   string  `json:"question"`
	Response   string  `json:"response"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

// ScoringResult is the terminal artifact of an interview. Fallback marks a
// deterministic locally-computed score used when the judgment service was
// unavailable or returned unusable output.
type ScoringResult struct {
	OverallScore    float64         `json:"overallScore"`
	CategoryScores  CategoryScores  `json:"categoryScores"`
	QuestionScores  []QuestionScore `json:"questionScores"`
	Summary         string          `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	Decision        HireDecision    `json:"decision"`
	Fallback        bool            `json:"fallback,omitempty"`
}

// Snapshot is a copy of the orchestrator's observable state.
type Snapshot struct {
	Phase          Phase
	CurrentIndex   int
	TotalQuestions int
	StartTime      time.Time
	Running        bool
	Paused         bool
	SessionID      string
	LastError      string
}
