package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// Judgment service (turn decisions + scoring)
	GeminiKey   string
	GeminiModel string

	// Room provisioning
	DailyKey    string
	DailyDomain string

	// Session store
	SupabaseURL string
	SupabaseKey string

	// Speech adapters
	AssemblyAIKey string
	DeepgramKey   string
	DeepgramModel string

	// Path to a YAML question config; empty uses the built-in screening set.
	QuestionsFile string
}

// Load reads environment variables and returns Config with sane defaults.
// Missing keys downgrade behavior (fallback scoring, no persistence) rather
// than failing the process.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	geminiModel := os.Getenv("GEMINI_MODEL_ID")
	if geminiModel == "" {
		geminiModel = "gemini-1.5-flash"
	}
	if geminiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set - turn decisions and scoring use deterministic fallbacks")
	}

	dailyKey := os.Getenv("DAILY_API_KEY")
	if dailyKey == "" {
		log.Println("Warning: DAILY_API_KEY not set - room provisioning will not work")
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL / SUPABASE_SERVICE_ROLE_KEY not set - sessions will not be persisted")
	}

	assemblyAIKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - live transcription will not work")
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - speech output will not work")
	}

	log.Printf("config: HTTP_ADDRESS=%s", addr)
	return Config{
		HTTPAddress:   addr,
		GeminiKey:     geminiKey,
		GeminiModel:   geminiModel,
		DailyKey:      dailyKey,
		DailyDomain:   os.Getenv("DAILY_DOMAIN"),
		SupabaseURL:   supabaseURL,
		SupabaseKey:   supabaseKey,
		AssemblyAIKey: assemblyAIKey,
		DeepgramKey:   deepgramKey,
		DeepgramModel: os.Getenv("DEEPGRAM_MODEL_ID"),
		QuestionsFile: os.Getenv("INTERVIEW_QUESTIONS_FILE"),
	}
}
