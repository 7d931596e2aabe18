package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/discharge-care/internal/agent"
	"github.com/rcliao/discharge-care/internal/composer"
	"github.com/rcliao/discharge-care/internal/embedding"
	"github.com/rcliao/discharge-care/internal/extract"
	"github.com/rcliao/discharge-care/internal/knowledge"
	"github.com/rcliao/discharge-care/internal/lexicon"
	"github.com/rcliao/discharge-care/internal/llm"
	"github.com/rcliao/discharge-care/internal/orchestrator"
	"github.com/rcliao/discharge-care/internal/patient"
	"github.com/rcliao/discharge-care/internal/rerank"
	"github.com/rcliao/discharge-care/internal/retriever"
	"github.com/rcliao/discharge-care/internal/search"
	"github.com/rcliao/discharge-care/internal/session"
)

// app holds everything a conversation needs, built from the loaded config.
type app struct {
	index     *knowledge.Index
	patients  patient.Lookup
	lexicon   *lexicon.Lexicon
	completer llm.Completer
	retriever *retriever.Retriever
	sessions  *session.InMemory
	orch      *orchestrator.Orchestrator
	closers   []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context) (*app, error) {
	a := &app{}
	var err error
	fail := func(e error) (*app, error) {
		a.Close()
		return nil, e
	}

	if a.lexicon, err = openLexicon(); err != nil {
		return fail(err)
	}
	if a.index, err = openIndex(ctx); err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, a.index.Close)

	patients, closePatients, err := openPatients(ctx)
	if err != nil {
		return fail(err)
	}
	a.patients = patients
	a.closers = append(a.closers, closePatients)

	if a.completer, err = llm.New(ctx, cfg.LLMSettings()); err != nil {
		return fail(fmt.Errorf("language model: %w", err))
	}
	if a.retriever, err = newRetriever(a.index, a.lexicon); err != nil {
		return fail(err)
	}

	classifier := agent.NewClassifier(a.lexicon)
	extractor, err := newExtractor(a.completer)
	if err != nil {
		return fail(err)
	}
	reception := composer.New(a.completer, composer.WithPersona(composer.Receptionist), composer.WithLogger(logger))
	clinical := composer.New(a.completer, composer.WithPersona(composer.Clinical), composer.WithLogger(logger))

	a.sessions = session.NewInMemory(func() *agent.Receptionist {
		return agent.NewReceptionist(agent.ReceptionistDeps{
			Lookup:     a.patients,
			Extractor:  extractor,
			Composer:   reception,
			Classifier: classifier,
			Turns:      cfg.Memory.Turns,
			Logger:     logger,
		})
	}, logger)
	a.orch = orchestrator.New(a.sessions, agent.ClinicalDeps{
		Retriever:  a.retriever,
		Composer:   clinical,
		Classifier: classifier,
		Turns:      cfg.Memory.Turns,
		Logger:     logger,
	}, classifier, logger)
	return a, nil
}

func openLexicon() (*lexicon.Lexicon, error) {
	if cfg.Lexicon.Path == "" {
		return lexicon.Default(), nil
	}
	lex, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	return lex, nil
}

func openIndex(ctx context.Context) (*knowledge.Index, error) {
	idx, err := knowledge.Open(ctx, cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index %s (run ingest first): %w", cfg.Index.Path, err)
	}
	return idx, nil
}

// openPatients prefers Postgres when a DSN is configured.
func openPatients(ctx context.Context) (patient.Lookup, func() error, error) {
	if cfg.Patients.DSN != "" {
		pg, err := patient.OpenPostgres(ctx, cfg.Patients.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	dir, err := patient.LoadJSON(cfg.Patients.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	return dir, func() error { return nil }, nil
}

func newEmbedder(dims int) (embedding.Embedder, error) {
	settings := cfg.EmbedSettings()
	if dims > 0 {
		settings.Dims = dims
	}
	e, err := embedding.New(settings)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	return e, nil
}

// newRetriever wires the optional reranker and external searchers. A web
// searcher that cannot be created is logged and left out.
func newRetriever(index *knowledge.Index, lex *lexicon.Lexicon) (*retriever.Retriever, error) {
	embedder, err := newEmbedder(index.Dims())
	if err != nil {
		return nil, err
	}
	opts := []retriever.Option{
		retriever.WithConfig(cfg.RetrieverSettings()),
		retriever.WithExpander(lex),
		retriever.WithLogger(logger),
		retriever.WithPapers(search.NewArxiv(cfg.Retrieval.ArxivURL, cfg.Retrieval.PaperResults, cfg.Retrieval.WebTimeout)),
	}
	if web, err := search.NewDuckDuckGo(cfg.Retrieval.WebResults, cfg.Retrieval.WebTimeout); err != nil {
		logger.Warn("web search disabled", "err", err)
	} else {
		opts = append(opts, retriever.WithWebSearch(web))
	}
	if cfg.Rerank.Provider == "cohere" {
		if cfg.Rerank.APIKey == "" {
			return nil, errors.New("cohere reranker needs an API key")
		}
		opts = append(opts, retriever.WithReranker(rerank.NewCohere(cfg.Rerank.APIKey, cfg.Rerank.Model, cfg.Rerank.Timeout)))
	}
	return retriever.New(index, embedder, opts...), nil
}

// newExtractor returns the pattern matcher, or a chain that asks the model
// first when extract.use_model is set.
func newExtractor(completer llm.Completer) (extract.Extractor, error) {
	if !cfg.Extract.UseModel {
		return extract.Pattern{}, nil
	}
	m, err := extract.NewModel(completer)
	if err != nil {
		return nil, err
	}
	return &extract.Chain{
		Primary:       m,
		Fallback:      extract.Pattern{},
		MinConfidence: cfg.MinConfidence(),
		Logger:        logger,
	}, nil
}
