// Package service assembles a ready-to-query search stack from
// configuration. The HTTP server and the CLI share it.
package service

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/review"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/formatter"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
)

type Service struct {
	Store     *occupation.Store
	Engine    *indexer.Engine
	Tokenizer tokenizer.Tokenizer
	Lookup    review.Lookup
	Executor  *executor.Executor
	Mode      scorer.Mode

	tokenizerName string
}

// New loads the dataset named by cfg and builds the index over it. m may be
// nil.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Service, error) {
	store, err := indexer.LoadStore(ctx, cfg.Dataset, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("loading %s dataset: %w", cfg.Dataset.Source, err)
	}
	return NewFromStore(store, cfg, m)
}

func NewFromStore(store *occupation.Store, cfg *config.Config, m *metrics.Metrics) (*Service, error) {
	mode, err := scorer.ParseMode(cfg.Ranking.ScoringMode)
	if err != nil {
		return nil, err
	}
	engine := indexer.NewEngine(store, indexer.OptionsFromConfig(cfg.Ranking), m)
	tok, err := NewTokenizer(cfg.Ranking.Tokenizer, engine.Vocabulary())
	if err != nil {
		return nil, err
	}
	lookup, err := review.FromConfig(cfg.Review, m)
	if err != nil {
		return nil, fmt.Errorf("configuring review lookup: %w", err)
	}
	exec := executor.New(engine, tok, lookup, executor.Options{
		Mode:       mode,
		MaxResults: cfg.Ranking.MaxResults,
		Format: formatter.Options{
			TopItems:    cfg.Ranking.TopItems,
			Concurrency: cfg.Review.Concurrency,
		},
	}, m)
	return &Service{
		Store:         store,
		Engine:        engine,
		Tokenizer:     tok,
		Lookup:        lookup,
		Executor:      exec,
		Mode:          mode,
		tokenizerName: cfg.Ranking.Tokenizer,
	}, nil
}

// NewTokenizer returns the named query tokenizer. vocabulary is only used
// by the skills tokenizer.
func NewTokenizer(name string, vocabulary []string) (tokenizer.Tokenizer, error) {
	switch name {
	case "", config.TokenizerWords:
		return tokenizer.Words{}, nil
	case config.TokenizerSkills:
		return tokenizer.NewSkills(vocabulary, nil), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

// CacheNamespace identifies the ranking settings cached results depend on.
func (s *Service) CacheNamespace() string {
	name := s.tokenizerName
	if name == "" {
		name = config.TokenizerWords
	}
	return s.Mode.String() + "/" + name
}
