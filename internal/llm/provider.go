// Package llm implements the recommendation engine on top of chat-completion
// backends. The Provider owns prompt construction and response parsing; the
// backends only complete text.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"radiofree/internal/core"
	"radiofree/internal/prompts"
	"radiofree/pkg/text"
)

// Client completes a (system, user) prompt pair into raw text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Provider implements core.Recommender over a Client.
type Provider struct {
	config  *core.LLMConfig
	logger  *zap.Logger
	prompts *prompts.Set
	client  Client
}

// NewProvider builds a Provider for the configured backend. Provider "none"
// yields a client that fails every call, for running without recommendations.
func NewProvider(config *core.LLMConfig, set *prompts.Set, logger *zap.Logger) (*Provider, error) {
	var client Client
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		client = &NoOpClient{}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config:  config,
		logger:  logger,
		prompts: set,
		client:  client,
	}, nil
}

// Suggest asks for a single next track.
func (p *Provider) Suggest(ctx context.Context, req core.SuggestRequest) (*core.Candidate, error) {
	user, err := p.prompts.Render(prompts.SuggestOne, suggestData(req, 1))
	if err != nil {
		return nil, err
	}

	raw, err := p.complete(ctx, user)
	if err != nil {
		return nil, err
	}

	s, err := text.ParseSuggestion(raw)
	if err != nil {
		p.logger.Warn("Unparseable suggestion",
			zap.String("provider", p.config.Provider),
			zap.String("response", truncate(raw, 200)))
		return nil, fmt.Errorf("%w: %v", core.ErrParseFailure, err)
	}

	return &core.Candidate{Title: s.Title, Artist: s.Artist, Intro: s.Intro}, nil
}

// SuggestBatch asks for count next tracks in play order.
func (p *Provider) SuggestBatch(ctx context.Context, req core.SuggestRequest, count int) ([]core.Candidate, error) {
	name := prompts.SuggestBatch
	if req.Theme != "" {
		name = prompts.ThemeList
	}
	user, err := p.prompts.Render(name, suggestData(req, count))
	if err != nil {
		return nil, err
	}

	raw, err := p.complete(ctx, user)
	if err != nil {
		return nil, err
	}

	suggestions, err := text.ParseSuggestionList(raw)
	if err != nil {
		p.logger.Warn("Unparseable suggestion list",
			zap.String("provider", p.config.Provider),
			zap.String("response", truncate(raw, 200)))
		return nil, fmt.Errorf("%w: %v", core.ErrParseFailure, err)
	}

	if len(suggestions) > count {
		suggestions = suggestions[:count]
	}
	out := make([]core.Candidate, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, core.Candidate{Title: s.Title, Artist: s.Artist, Intro: s.Intro})
	}
	return out, nil
}

// SongInsight returns background prose about a track.
func (p *Provider) SongInsight(ctx context.Context, track core.Track) (string, error) {
	user, err := p.prompts.Render(prompts.SongInsight, map[string]any{
		"Title":  track.Title,
		"Artist": track.Artist,
	})
	if err != nil {
		return "", err
	}
	return p.complete(ctx, user)
}

// ExplainLyrics returns an interpretation of the track's lyrics. The lyrics
// text may be empty, in which case the backend works from memory.
func (p *Provider) ExplainLyrics(ctx context.Context, track core.Track, lyrics string) (string, error) {
	user, err := p.prompts.Render(prompts.ExplainLyric, map[string]any{
		"Title":  track.Title,
		"Artist": track.Artist,
		"Lyrics": truncate(lyrics, 4000),
	})
	if err != nil {
		return "", err
	}
	return p.complete(ctx, user)
}

// MysteryOptions implements core.MysteryPicker: count follow-up options plus
// the index of the model's own secret pick.
func (p *Provider) MysteryOptions(ctx context.Context, req core.SuggestRequest, count int) ([]core.Candidate, int, error) {
	user, err := p.prompts.Render(prompts.MysteryList, suggestData(req, count))
	if err != nil {
		return nil, -1, err
	}

	raw, err := p.complete(ctx, user)
	if err != nil {
		return nil, -1, err
	}

	suggestions, pick, err := text.ParseMysteryPick(raw)
	if err != nil {
		p.logger.Warn("Unparseable mystery round",
			zap.String("provider", p.config.Provider),
			zap.String("response", truncate(raw, 200)))
		return nil, -1, fmt.Errorf("%w: %v", core.ErrParseFailure, err)
	}

	if len(suggestions) > count {
		suggestions = suggestions[:count]
		if pick >= count {
			pick = -1
		}
	}
	out := make([]core.Candidate, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, core.Candidate{Title: s.Title, Artist: s.Artist})
	}
	return out, pick, nil
}

// RadioIntro returns one DJ sentence introducing a candidate.
func (p *Provider) RadioIntro(ctx context.Context, candidate core.Candidate) (string, error) {
	user, err := p.prompts.Render(prompts.RadioIntro, map[string]any{
		"Title":  candidate.Title,
		"Artist": candidate.Artist,
	})
	if err != nil {
		return "", err
	}
	raw, err := p.complete(ctx, user)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(raw), "\""), nil
}

func (p *Provider) complete(ctx context.Context, user string) (string, error) {
	system, err := p.prompts.Render(prompts.System, nil)
	if err != nil {
		return "", err
	}

	raw, err := p.client.Complete(ctx, system, user)
	if err != nil {
		p.logger.Error("LLM call failed",
			zap.String("provider", p.config.Provider),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", core.ErrUpstreamUnavailable, err)
	}
	return raw, nil
}

func suggestData(req core.SuggestRequest, count int) map[string]any {
	data := map[string]any{
		"Count":     count,
		"Theme":     req.Theme,
		"WithIntro": req.WithIntro,
	}
	if req.Current != nil {
		data["Current"] = req.Current.Label()
	}
	if len(req.Recent) > 0 {
		labels := make([]string, 0, len(req.Recent))
		for _, e := range req.Recent {
			labels = append(labels, e.Track.Label())
		}
		data["Recent"] = strings.Join(labels, "; ")
	}
	if len(req.Exclude) > 0 {
		data["Exclude"] = strings.Join(req.Exclude, "; ")
	}
	return data
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// NoOpClient fails every call. Used when no provider is configured.
type NoOpClient struct{}

func (n *NoOpClient) Complete(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("LLM provider not configured")
}
