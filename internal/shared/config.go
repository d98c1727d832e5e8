package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	Workers     int
	SourcesFile string
	OutputDir   string
	FiguresDir  string

	Classifier   string
	MaxTextRunes int
	ModelBaseURL string
	ModelName    string
	ModelAPIKey  string
	ModelRPS     int
	ModelLabels  string
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string

	EmojiPolicy      string
	EmojiLexiconFile string
}

// Load reads the environment, after an optional .env file in the working directory.
func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		Workers:     atoi("PIPELINE_WORKERS", 3),
		SourcesFile: env("SOURCES_FILE", ""),
		OutputDir:   env("OUTPUT_DIR", "output"),
		FiguresDir:  env("FIGURES_DIR", "figures"),

		Classifier:   strings.ToLower(env("CLASSIFIER", "vader")),
		MaxTextRunes: atoi("MAX_TEXT_RUNES", 512),
		ModelBaseURL: env("MODEL_BASE_URL", "https://api-inference.huggingface.co"),
		ModelName:    env("MODEL_NAME", "cardiffnlp/twitter-roberta-base-sentiment"),
		ModelAPIKey:  env("MODEL_API_KEY", ""),
		ModelRPS:     atoi("MODEL_RPS", 5),
		ModelLabels:  env("MODEL_LABELS", ""),
		LLMBaseURL:   env("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:     env("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:    env("LLM_API_KEY", ""),

		EmojiPolicy:      env("EMOJI_POLICY", "majority"),
		EmojiLexiconFile: env("EMOJI_LEXICON_FILE", ""),
	}
	switch {
	case c.Classifier == "model" && c.ModelAPIKey == "":
		log.Warn().Msg("MODEL_API_KEY is empty")
	case c.Classifier == "llm" && c.LLMAPIKey == "":
		log.Warn().Msg("LLM_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
