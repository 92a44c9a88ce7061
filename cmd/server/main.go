package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chadiek/interview-demo/internal/config"
	"github.com/chadiek/interview-demo/internal/httpserver"
	"github.com/chadiek/interview-demo/internal/interview"
	"github.com/chadiek/interview-demo/internal/judge"
	"github.com/chadiek/interview-demo/internal/rooms"
	"github.com/chadiek/interview-demo/internal/scoring"
	"github.com/chadiek/interview-demo/internal/store"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	questions := interview.DefaultConfig()
	if cfg.QuestionsFile != "" {
		loaded, err := interview.LoadConfig(cfg.QuestionsFile)
		if err != nil {
			log.Fatalf("question config: %v", err)
		}
		questions = loaded
	}

	var gen judge.Generator
	if cfg.GeminiKey != "" {
		gen = judge.NewGeminiClient(cfg.GeminiKey, cfg.GeminiModel)
	}

	deps := httpserver.Deps{
		Evaluator: judge.NewEvaluator(gen),
		Scorer:    scoring.NewCoordinator(gen),
		Questions: questions,
	}
	if cfg.DailyKey != "" {
		rc := rooms.NewClient(cfg.DailyKey)
		rc.Domain = cfg.DailyDomain
		deps.Rooms = rc
	}
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		st, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Fatalf("supabase: %v", err)
		}
		deps.Store = st
	} else {
		deps.Store = store.NewMemoryStore()
		log.Println("using in-memory session store")
	}

	srv := httpserver.New(deps)

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- srv.Start(cfg.HTTPAddress)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
