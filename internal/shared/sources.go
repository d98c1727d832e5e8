package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"review_insights/internal/domain"
)

// DefaultSources are the three exports the project started with.
var DefaultSources = []domain.Source{
	{App: "Zoom", Input: filepath.Join("data", "zoom_reviews.csv")},
	{App: "Webex", Input: filepath.Join("data", "webex_reviews.csv")},
	{App: "Firefox", Input: filepath.Join("data", "firefox_reviews.csv")},
}

type sourcesFile struct {
	Sources []struct {
		App   string `yaml:"app"`
		Input string `yaml:"input"`
	} `yaml:"sources"`
}

// LoadSources reads the sources file, or returns DefaultSources when path is
// empty. Relative inputs resolve against the file's directory.
func LoadSources(path string) ([]domain.Source, error) {
	if path == "" {
		return DefaultSources, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: sources file %s: %v", domain.ErrInvalidArgument, path, err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("%w: sources file %s lists no sources", domain.ErrInvalidArgument, path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]struct{}, len(f.Sources))
	out := make([]domain.Source, 0, len(f.Sources))
	for i, s := range f.Sources {
		app, input := strings.TrimSpace(s.App), strings.TrimSpace(s.Input)
		if app == "" || input == "" {
			return nil, fmt.Errorf("%w: source %d needs app and input", domain.ErrInvalidArgument, i+1)
		}
		if _, dup := seen[strings.ToLower(app)]; dup {
			return nil, fmt.Errorf("%w: app %q listed twice", domain.ErrInvalidArgument, app)
		}
		seen[strings.ToLower(app)] = struct{}{}
		if !filepath.IsAbs(input) {
			input = filepath.Join(base, input)
		}
		out = append(out, domain.Source{App: domain.SourceTag(app), Input: input})
	}
	return out, nil
}
