// Package summary asks Gemini for a one-line note about the ranked tasks.
package summary

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

const (
	// NoBlockers is returned without calling the model when nothing is in scope.
	NoBlockers = "no immediate blockers"

	maxSummaryLen = 120
	maxTitleLen   = 70
	promptPrefix  = "Return minified JSON only with key s. s must be <=120 chars and concrete.\ntasks="
)

type generateFunc func(ctx context.Context, prompt string) (string, error)

// Gemini implements digest.Summarizer.
type Gemini struct {
	generate   generateFunc
	windowDays int
	maxTasks   int
	log        *slog.Logger
}

// New creates a Gemini client for cfg.Model.
func New(ctx context.Context, cfg config.SummaryConfig, log *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, apperr.New(apperr.Configuration, "GEMINI_API_KEY is required when the AI summary is enabled")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Configuration, err, "unable to create gemini client")
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  80,
		ResponseMIMEType: "application/json",
	}
	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), genCfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGemini(generate, cfg, log), nil
}

func newGemini(generate generateFunc, cfg config.SummaryConfig, log *slog.Logger) *Gemini {
	return &Gemini{
		generate:   generate,
		windowDays: cfg.WindowDays,
		maxTasks:   cfg.MaxTasks,
		log:        logging.OrDiscard(log),
	}
}

// ScopedTask is the compact task form sent in the prompt.
type ScopedTask struct {
	T string `json:"t"`
	D string `json:"d"`
	P string `json:"p"`
}

// Scope returns the tasks sent to the model: those due within the window,
// in rank order, capped at the configured maximum.
func (g *Gemini) Scope(ranked []model.ScoredTask) []ScopedTask {
	var out []ScopedTask
	for _, t := range ranked {
		if g.maxTasks > 0 && len(out) >= g.maxTasks {
			break
		}
		if t.DueInDays > g.windowDays {
			continue
		}
		out = append(out, ScopedTask{T: util.Truncate(t.Title, maxTitleLen), D: t.Due, P: t.Priority})
	}
	return out
}

// Summarize never fails; errors are logged and yield "".
func (g *Gemini) Summarize(ctx context.Context, ranked []model.ScoredTask, today string) string {
	scope := g.Scope(ranked)
	if len(scope) == 0 {
		return NoBlockers
	}
	payload, err := json.Marshal(scope)
	if err != nil {
		g.log.Warn("ai summary skipped", "error", err)
		return ""
	}

	text, err := g.generate(ctx, promptPrefix+string(payload))
	if err != nil {
		g.log.Warn("ai summary failed", "date", today, "error", err)
		return ""
	}
	return Sanitize(extract(text))
}

func extract(text string) string {
	var out struct {
		S string `json:"s"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err == nil && out.S != "" {
		return out.S
	}
	return text
}

// Sanitize collapses whitespace to single spaces and caps the length.
func Sanitize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > maxSummaryLen {
		s = strings.TrimSpace(string(r[:maxSummaryLen]))
	}
	return s
}
