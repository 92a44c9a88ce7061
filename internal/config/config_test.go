package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", "")
	os.Setenv("GEMINI_MODEL_ID", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.GeminiModel == "" {
		t.Fatalf("expected default gemini model id")
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", ":9999")
	os.Setenv("GEMINI_MODEL_ID", "gemini-custom")
	defer os.Unsetenv("HTTP_ADDRESS")
	defer os.Unsetenv("GEMINI_MODEL_ID")
	cfg := Load()
	if cfg.HTTPAddress != ":9999" {
		t.Fatalf("expected :9999, got %s", cfg.HTTPAddress)
	}
	if cfg.GeminiModel != "gemini-custom" {
		t.Fatalf("expected gemini-custom, got %s", cfg.GeminiModel)
	}
}
