package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chadiek/interview-demo/internal/config"
	"github.com/chadiek/interview-demo/internal/interview"
	"github.com/chadiek/interview-demo/internal/judge"
	"github.com/chadiek/interview-demo/internal/scoring"
	"github.com/chadiek/interview-demo/internal/speech"
	"github.com/chadiek/interview-demo/internal/store"
)

// Headless interview runner. By default questions are printed and answers
// are typed on stdin; -live switches to the AssemblyAI/Deepgram adapters and
// -mock replays a canned candidate for quick end-to-end checks.
func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	live := flag.Bool("live", false, "use live speech adapters instead of stdin")
	mock := flag.Bool("mock", false, "replay a canned candidate")
	flag.Parse()

	cfg := config.Load()

	questions := interview.DefaultConfig()
	if cfg.QuestionsFile != "" {
		loaded, err := interview.LoadConfig(cfg.QuestionsFile)
		if err != nil {
			log.Fatalf("question config: %v", err)
		}
		questions = loaded
	}

	var out interview.SpeechOutput
	var in interview.SpeechInput
	switch {
	case *live:
		out = speech.NewDeepgramOutput(cfg.DeepgramKey, cfg.DeepgramModel, speech.NopSink{})
		in = speech.NewAssemblyAIInput(cfg.AssemblyAIKey, nil)
	case *mock:
		out = &speech.LogOutput{}
		in = &speech.ScriptedInput{Answers: []string{
			"I spent two years in retail sales and want to move into tech sales because I enjoy the fast pace.",
			"I would research the company first, then open the call with a specific value proposition for them.",
			"I would acknowledge it, ask what their current priorities are, and offer to share one relevant case study.",
			"I would ask about budget, who makes the decision, what problem they are solving and their timeline.",
			"Hitting targets motivates me, and I treat rejection as data about my pitch rather than about me.",
			"I would sort leads by fit and recent engagement, call the top thirty, and queue the rest for email.",
		}}
	default:
		log.Println("type answers and press enter; an empty wait advances on the question deadline")
		out = &speech.LogOutput{}
		in = speech.NewTextInput(os.Stdin)
	}

	var gen judge.Generator
	if cfg.GeminiKey != "" {
		gen = judge.NewGeminiClient(cfg.GeminiKey, cfg.GeminiModel)
	}
	eval := judge.NewEvaluator(gen)

	var st store.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		supa, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Fatalf("supabase: %v", err)
		}
		st = supa
	} else {
		st = store.NewMemoryStore()
	}

	done := make(chan interview.ScoringResult, 1)
	orch, err := interview.New(questions, out, in, eval, scoring.NewCoordinator(gen), st, interview.Callbacks{
		OnQuestion: func(q interview.Question, index int) {
			log.Printf("question %d/%d [%s]", index+1, questions.TotalQuestions(), q.ID)
		},
		OnResponse: func(rec interview.ResponseRecord) {
			log.Printf("captured %d words for %s", rec.WordCount, rec.QuestionID)
		},
		OnError: func(err error) {
			log.Printf("error: %v", err)
		},
		OnComplete: func(result interview.ScoringResult) {
			done <- result
		},
	})
	if err != nil {
		log.Fatalf("orchestrator: %v", err)
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("stopping early: %v", sig)
		orch.Stop()
		<-orch.Done()
	case <-orch.Done():
	}

	select {
	case result := <-done:
		enc, _ := json.MarshalIndent(result, "", "  ")
		log.Printf("scoring result:\n%s", enc)
	default:
		log.Println("interview ended without a scoring result")
	}
}
