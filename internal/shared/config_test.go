package shared_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"review_insights/internal/domain"
	"review_insights/internal/shared"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	chdir(t, t.TempDir()) // no stray .env
	t.Setenv("CLASSIFIER", "LLM")
	t.Setenv("PIPELINE_WORKERS", "6")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("MAX_TEXT_RUNES", "oops")

	c := shared.Load()
	if c.Classifier != "llm" || c.Workers != 6 || c.CacheTTL != 30*time.Second {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.MaxTextRunes != 512 || c.EmojiPolicy != "majority" || c.HTTPAddr != ":8080" {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("EMOJI_POLICY=first_match\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	t.Setenv("EMOJI_POLICY", "")
	os.Unsetenv("EMOJI_POLICY")

	if c := shared.Load(); c.EmojiPolicy != "first_match" {
		t.Fatalf("EmojiPolicy = %q", c.EmojiPolicy)
	}
}

func TestLoadSources(t *testing.T) {
	got, err := shared.LoadSources("")
	if err != nil || len(got) != 3 || got[0].App != "Zoom" {
		t.Fatalf("defaults: %+v %v", got, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	body := "sources:\n  - app: Zoom\n    input: exports/zoom.csv\n  - app: Slack\n    input: /abs/slack.csv\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = shared.LoadSources(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Input != filepath.Join(dir, "exports", "zoom.csv") || got[1].Input != "/abs/slack.csv" {
		t.Fatalf("sources: %+v", got)
	}
}

func TestLoadSources_Invalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"empty.yaml": "sources: []\n",
		"dup.yaml":   "sources:\n  - {app: Zoom, input: a.csv}\n  - {app: zoom, input: b.csv}\n",
		"bad.yaml":   "sources:\n  - {app: Zoom}\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := shared.LoadSources(path); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
	if _, err := shared.LoadSources(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
