package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for the bot process.
type Config struct {
	TelegramAPIBase  string
	TelegramFileBase string
	PollTimeout      int
	SleepSeconds     int
	RequestTimeout   int

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ChatModel       string
	VisionModel     string
	TranscribeModel string

	GeminiAPIKey string
	GeminiURL    string

	SystemPrompt  string
	HistoryWindow int
	DBPath        string
	TempDir       string
}

// Load reads configuration from environment variables. Secrets are not
// validated here: a missing token or key surfaces as an authentication
// failure at call time.
func Load() Config {
	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")

	return Config{
		TelegramAPIBase:  fmt.Sprintf("https://api.telegram.org/bot%s", telegramToken),
		TelegramFileBase: fmt.Sprintf("https://api.telegram.org/file/bot%s", telegramToken),
		PollTimeout:      envIntOrDefault("TG_TIMEOUT", 30),
		SleepSeconds:     envIntOrDefault("TG_SLEEP_SECONDS", 1),
		RequestTimeout:   envIntOrDefault("HW_REQUEST_TIMEOUT_SECONDS", 120),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		ChatModel:       envOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		VisionModel:     envOrDefault("OPENAI_VISION_MODEL", "gpt-4o"),
		TranscribeModel: envOrDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiURL: envOrDefault("GEMINI_URL",
			"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"),

		SystemPrompt: envOrDefault("HW_SYSTEM_PROMPT",
			"You are a helpful assistant named Handle Warrior and developed by Saswata Pal."),
		HistoryWindow: envIntOrDefault("HW_HISTORY_WINDOW", 20),
		DBPath:        envOrDefault("HW_DB_PATH", "./handlewarrior.db"),
		TempDir:       os.Getenv("HW_TEMP_DIR"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
