package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/confecoes-lanca/prospector/internal/outreach"
	"github.com/confecoes-lanca/prospector/internal/pipeline"
	"github.com/confecoes-lanca/prospector/internal/scoring"
	"github.com/confecoes-lanca/prospector/internal/scrape"
	"github.com/confecoes-lanca/prospector/internal/similarity"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/internal/workflow"
	anthropicpkg "github.com/confecoes-lanca/prospector/pkg/anthropic"
	"github.com/confecoes-lanca/prospector/pkg/firecrawl"
	"github.com/confecoes-lanca/prospector/pkg/jina"
	"github.com/confecoes-lanca/prospector/pkg/openai"
	"github.com/confecoes-lanca/prospector/pkg/resend"
	"github.com/confecoes-lanca/prospector/pkg/tavily"
)

// pipelineEnv holds all initialized clients and the pipeline needed by the
// prospect/resume/score/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Manager  *workflow.Manager
	Engine   *scoring.Engine
	Index    *similarity.Index
	Sender   *outreach.Sender
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, all API clients, and builds the pipeline
// and workflow manager. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	openaiClient := openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
	)
	resendClient := resend.NewClient(cfg.Resend.Key, resend.WithBaseURL(cfg.Resend.BaseURL))

	// Scrape chain: Jina primary, Firecrawl fallback.
	chain := scrape.NewChain(
		scrape.NewJinaAdapter(jinaClient),
		scrape.NewFirecrawlAdapter(firecrawlClient),
	)

	index := similarity.NewIndex(st, openaiClient)
	explainer := scoring.NewLLMExplainer(anthropicClient, cfg.Anthropic.ExplainerModel)
	engine := scoring.NewEngine(index, explainer, cfg.Scoring)

	pipelineCfg := cfg.Pipeline
	if pipelineCfg.Model == "" {
		pipelineCfg.Model = cfg.Anthropic.Model
	}

	p := pipeline.New(pipelineCfg, st, tavilyClient, chain, index, engine, anthropicClient)
	mgr := workflow.NewManager(p, st)
	sender := outreach.NewSender(resendClient, st, cfg.Email)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Manager:  mgr,
		Engine:   engine,
		Index:    index,
		Sender:   sender,
	}, nil
}
