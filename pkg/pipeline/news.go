package pipeline

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/feedgraph/pkg/feeds"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/agent"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
	"github.com/randalmurphal/feedgraph/pkg/report"
)

// News pipeline nodes.
const (
	NodePlanner   = "planner"
	NodeFetch     = "fetch"
	NodeScrape    = "scrape"
	NodeFilter    = "filter"
	NodeSummarize = "summarize"
	NodeReview    = "review"
	NodeRoute     = "route"
	NodeReport    = "report"
)

// Seed and result fields.
const (
	FieldRSSURLs   = "rss_urls"
	FieldKeywords  = report.FieldKeywords
	FieldRunDate   = report.FieldRunDate
	FieldUserInput = "user_input"
	FieldReport    = "report_response"
)

// Output returns the field a node writes.
func Output(node string) string { return node + "_response" }

// NewsDeps are the collaborators of the news graph. Nil fields get the
// HTTP implementations configured from Settings; the default fetcher is
// built per run so it logs to the run's logger.
type NewsDeps struct {
	Fetcher feeds.Fetcher
	Scraper feeds.Scraper
	// Client overrides the model client of the run Context.
	Client llm.Client
	Now    func() time.Time
}

func (d NewsDeps) withDefaults(cfg Settings) NewsDeps {
	if d.Scraper == nil {
		scraper := feeds.NewHTTPScraper()
		scraper.MaxChars = cfg.Feeds.MaxChars
		d.Scraper = scraper
	}
	return d
}

func defaultFetcher(cfg Settings, logger *slog.Logger) feeds.Fetcher {
	var f feeds.Fetcher = feeds.NewHTTPFetcher(
		feeds.WithMaxPerFeed(cfg.Feeds.MaxPerFeed),
		feeds.WithFetchLogger(logger),
	)
	if cfg.Feeds.CachePath != "" {
		f = &feeds.CachedFetcher{Fetcher: f, Path: cfg.Feeds.CachePath, MaxAge: cfg.Feeds.CacheMaxAge, Logger: logger}
	}
	return f
}

// NewsSeed returns the initial state of a news run.
func NewsSeed(cfg Settings, now time.Time) state.State {
	return state.New(map[string]any{
		FieldRSSURLs:  cfg.RSSURLs,
		FieldKeywords: cfg.Keywords,
		FieldRunDate:  now.Format(time.DateTime),
	})
}

// NewsGraph builds and compiles the news pipeline.
func NewsGraph(cfg Settings, deps NewsDeps) (*flowgraph.CompiledGraph[state.State], error) {
	deps = deps.withDefaults(cfg)
	feedback := agent.Input{Var: "feedback", Key: Output(NodeReview), Path: "feedback", Optional: true}
	asAgent := flowgraph.WithKind(flowgraph.KindAgent)

	planner := agent.New(agent.Spec{
		Name:   NodePlanner,
		System: plannerSystem,
		Prompt: plannerUser,
		Inputs: []agent.Input{feedback},
		JSON:   true,
		Client: deps.Client,
		Now:    deps.Now,
	})
	summarize := agent.New(agent.Spec{
		Name:   NodeSummarize,
		System: summarizeSystem,
		Prompt: summarizeUser,
		Inputs: []agent.Input{{Var: "articles", Key: Output(NodeFilter)}, feedback},
		JSON:   true,
		Batch: &agent.Batch{
			Var:         "articles",
			Key:         "filtered_articles",
			Size:        cfg.Batch.SummarizeSize,
			Concurrency: cfg.Batch.Concurrency,
		},
		Client: deps.Client,
		Now:    deps.Now,
	})
	review := agent.New(agent.Spec{
		Name:   NodeReview,
		System: reviewSystem,
		Prompt: reviewUser,
		Inputs: []agent.Input{
			{Var: "summaries", Key: Output(NodeSummarize)},
			{Var: "keywords", Key: FieldKeywords, Optional: true},
		},
		JSON: true,
		Batch: &agent.Batch{
			Var:         "summaries",
			Key:         "summaries",
			Size:        cfg.Batch.ReviewSize,
			Concurrency: cfg.Batch.Concurrency,
		},
		Client: deps.Client,
		Now:    deps.Now,
	})
	route := agent.New(agent.Spec{
		Name:   NodeRoute,
		System: routeSystem,
		Prompt: routeUser,
		Inputs: []agent.Input{{Var: "review", Key: Output(NodeReview)}},
		JSON:   true,
		Schema: routeSchema,
		Client: deps.Client,
		Now:    deps.Now,
	})

	router := agent.Router(agent.RouteConfig{
		Field:       Output(NodeRoute),
		ReviewField: Output(NodeReview),
		PassTarget:  NodeReport,
	})

	return flowgraph.NewGraph[state.State]().
		SetReducer(state.Merge).
		AddNode(NodePlanner, planner, asAgent).
		AddNode(NodeFetch, agent.Tool(NodeFetch, Output(NodeFetch), fetchArticles(deps.Fetcher, cfg))).
		AddNode(NodeScrape, agent.Tool(NodeScrape, Output(NodeScrape), scrapeArticles(deps.Scraper, cfg.Feeds.ScrapeConcurrency))).
		AddNode(NodeFilter, agent.Tool(NodeFilter, Output(NodeFilter), filterArticles)).
		AddNode(NodeSummarize, summarize, asAgent).
		AddNode(NodeReview, review, asAgent).
		AddNode(NodeRoute, route, asAgent).
		AddNode(NodeReport, agent.Tool(NodeReport, FieldReport, newsReport)).
		AddEdge(NodePlanner, NodeFetch).
		AddEdge(NodeFetch, NodeScrape).
		AddEdge(NodeScrape, NodeFilter).
		AddEdge(NodeFilter, NodeSummarize).
		AddEdge(NodeSummarize, NodeReview).
		AddEdge(NodeReview, NodeRoute).
		AddConditionalEdge(NodeRoute, router,
			flowgraph.WithTargets(NodePlanner, NodeFetch, NodeFilter, NodeSummarize, NodeReport),
			flowgraph.WithDefault(NodeReport),
		).
		SetEntry(NodePlanner).
		SetFinish(NodeReport).
		Compile()
}

func fetchArticles(fetcher feeds.Fetcher, cfg Settings) agent.ToolFunc {
	return func(ctx flowgraph.Context, s state.State) (any, error) {
		urls := s.Strings(FieldRSSURLs)
		if len(urls) == 0 {
			return nil, &agent.MissingInputError{Node: NodeFetch, Field: FieldRSSURLs}
		}
		f := fetcher
		if f == nil {
			f = defaultFetcher(cfg, ctx.Logger())
		}
		articles, err := f.Fetch(ctx, urls)
		if err != nil {
			return nil, err
		}
		ctx.Logger().Info("fetched articles", "feeds", len(urls), "articles", len(articles))
		return feeds.ArticleList{Articles: nonNil(articles)}, nil
	}
}

func scrapeArticles(scraper feeds.Scraper, concurrency int) agent.ToolFunc {
	return func(ctx flowgraph.Context, s state.State) (any, error) {
		var list feeds.ArticleList
		if err := s.Decode(Output(NodeFetch), &list); err != nil {
			return nil, err
		}
		articles, err := feeds.ScrapeAll(ctx, scraper, list.Articles, concurrency, ctx.Logger())
		if err != nil {
			return nil, err
		}
		ctx.Logger().Info("scraped articles", "requested", len(list.Articles), "scraped", len(articles))
		return feeds.ArticleList{Articles: nonNil(articles)}, nil
	}
}

func filterArticles(ctx flowgraph.Context, s state.State) (any, error) {
	var list feeds.ArticleList
	if err := s.Decode(Output(NodeScrape), &list); err != nil {
		return nil, err
	}
	kept := feeds.FilterByKeywords(list.Articles, s.Strings(FieldKeywords))
	ctx.Logger().Info("filtered articles", "articles", len(list.Articles), "kept", len(kept))
	return feeds.FilteredArticles{FilteredArticles: kept}, nil
}

func newsReport(_ flowgraph.Context, s state.State) (any, error) {
	return report.News(s), nil
}

func nonNil(articles []feeds.Article) []feeds.Article {
	if articles == nil {
		return []feeds.Article{}
	}
	return articles
}
