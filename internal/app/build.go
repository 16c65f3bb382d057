package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wonwookim/mockinterview/internal/catalog"
	"github.com/wonwookim/mockinterview/internal/config"
	"github.com/wonwookim/mockinterview/internal/dedup"
	"github.com/wonwookim/mockinterview/internal/evaluation"
	"github.com/wonwookim/mockinterview/internal/generator"
	"github.com/wonwookim/mockinterview/internal/httpapi"
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/llm"
	"github.com/wonwookim/mockinterview/internal/observability"
	"github.com/wonwookim/mockinterview/internal/persona"
	"github.com/wonwookim/mockinterview/internal/plan"
	"github.com/wonwookim/mockinterview/internal/policy"
	"github.com/wonwookim/mockinterview/internal/reliability"
	"github.com/wonwookim/mockinterview/internal/session"
	"github.com/wonwookim/mockinterview/internal/transcript"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Registry *session.Registry
	Service  *session.Service
	Archive  transcript.Store
	Metrics  *observability.Metrics
	LLM      string

	// Cleanup releases the archive store.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	adapter, err := llm.NewAdapter(llm.Config{
		Provider:      cfg.LLMProvider,
		APIKey:        cfg.OpenAIAPIKey,
		BaseURL:       cfg.OpenAIBaseURL,
		Model:         cfg.OpenAIModel,
		FallbackModel: cfg.OpenAIFallbackModel,
		Timeout:       cfg.GenerationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("llm adapter init failed: %w", err)
	}

	archive, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript store init failed: %w", err)
	}

	gen := generator.New(generator.Config{
		MaxRetries:           cfg.GenerationMaxRetries,
		RetryDelay:           cfg.GenerationRetryDelay,
		RetryMaxDelay:        cfg.GenerationRetryMaxDelay,
		Backoff:              cfg.GenerationBackoff,
		CallTimeout:          cfg.GenerationTimeout,
		MaxDuplicateAttempts: cfg.DuplicateMaxAttempts,
		QuestionMaxTokens:    cfg.QuestionMaxTokens,
		AnswerMaxTokens:      cfg.AnswerMaxTokens,
		QuestionTemperature:  cfg.QuestionTemperature,
		AnswerTemperature:    cfg.AnswerTemperature,
	},
		adapter,
		dedup.NewGuard(cfg.DuplicateThreshold, dedup.CosineScorer{}),
		reliability.NewRateBudget(cfg.GenerationRatePerMinute),
		generator.WithFallbackQuestions(cat.QuestionBank()),
		generator.WithFallbackAnswers(cat.AnswerBank()),
		generator.WithMetrics(metrics),
	)

	registry := session.NewRegistry(session.Config{
		IdleTimeout:        cfg.SessionIdleTimeout,
		CompletedRetention: cfg.SessionCompletedRetention,
	}, session.Deps{
		Catalog:   cat,
		Builder:   plan.NewBuilder(cat, cfg.SoloQuestionCount, cfg.CompetitionQuestionCount),
		Personas:  persona.FromCatalog(cat),
		Generator: gen,
		Metrics:   metrics,
	})

	archiveSummary := newArchiver(archive, metrics, cfg.TranscriptRedactPII, cfg.ArchiveTimeout)
	registry.SetTerminalHook(archiveSummary)
	registry.SetExpireHook(func(s interview.Summary) {
		log.Printf("session expired: id=%s phase=%s turns=%d", s.SessionID, s.Phase, len(s.Transcript))
	})

	service := session.NewService(registry, evaluation.New(cfg.EvaluatorURL, cfg.EvaluatorTimeout))
	api := httpapi.New(cfg, service, metrics).WithArchive(archive, storeMode(cfg.DatabaseURL))

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Registry: registry,
		Service:  service,
		Archive:  archive,
		Metrics:  metrics,
		LLM:      adapterName(adapter),
		Cleanup:  archive.Close,
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed: %w", err)
	}
	return cat, nil
}

// newArchiver returns the terminal hook that persists finished sessions.
// Archive failures are logged and counted; they never affect the session.
func newArchiver(store transcript.Store, metrics *observability.Metrics, redact bool, timeout time.Duration) func(interview.Summary) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(s interview.Summary) {
		redacted := false
		if redact {
			s, redacted = policy.RedactSummary(s)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := store.SaveSession(ctx, transcript.Record{
			SessionID:   s.SessionID,
			Summary:     s,
			PIIRedacted: redacted,
			ArchivedAt:  time.Now().UTC(),
		})
		if err != nil {
			metrics.ArchiveFailed()
			log.Printf("archive failed: session=%s err=%v", s.SessionID, err)
			return
		}
		log.Printf("session archived: id=%s phase=%s turns=%d redacted=%t", s.SessionID, s.Phase, len(s.Transcript), redacted)
	}
}

func storeMode(databaseURL string) string {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return "memory"
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite"
	default:
		return "postgres"
	}
}

func adapterName(a llm.Adapter) string {
	switch a.(type) {
	case *llm.MockAdapter:
		return "mock"
	case *llm.FallbackAdapter:
		return "openai+fallback"
	case *llm.HTTPAdapter:
		return "openai"
	default:
		return fmt.Sprintf("%T", a)
	}
}
