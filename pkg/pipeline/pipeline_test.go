package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/feeds"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/agent"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

var runDate = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type stubFetcher struct{ articles []feeds.Article }

func (f stubFetcher) Fetch(context.Context, []string) ([]feeds.Article, error) {
	return f.articles, nil
}

type stubScraper map[string]string

func (s stubScraper) Scrape(_ context.Context, url string) (string, error) {
	text, ok := s[url]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func newsDeps() NewsDeps {
	return NewsDeps{
		Fetcher: stubFetcher{articles: []feeds.Article{
			{Title: "AI beats benchmark", Link: "https://example.com/ai"},
			{Title: "Local sports recap", Link: "https://example.com/sports"},
		}},
		Scraper: stubScraper{
			"https://example.com/ai":     "Large models improved on the benchmark.",
			"https://example.com/sports": "The home team won.",
		},
		Now: func() time.Time { return runDate },
	}
}

func testSettings() Settings {
	cfg := DefaultSettings()
	cfg.RSSURLs = []string{"https://example.com/feed.xml"}
	cfg.Keywords = []string{"AI"}
	return cfg
}

func testContext(client llm.Client) flowgraph.Context {
	return flowgraph.NewContext(context.Background(),
		flowgraph.WithLLM(client),
		flowgraph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

const (
	passingReview = `{"reviews":[{"title":"AI beats benchmark","pass_review":true}],"pass_review":true,"feedback":"Looks good."}`
	failingReview = `{"reviews":[{"title":"AI beats benchmark","pass_review":false,"feedback":"Too short."}],"pass_review":false,"feedback":"Summaries too short"}`
)

// newsModel answers each news agent by its system prompt. review and route
// supply the reviewer and router outputs for the n-th review (0-based).
func newsModel(review func(n int) string, route string) *llm.MockClient {
	var reviews atomic.Int32
	return llm.NewMockClient("").WithHandler(func(req llm.CompletionRequest) (string, error) {
		switch {
		case strings.HasPrefix(req.SystemPrompt, "You plan"):
			return `{"plan":["fetch","filter","summarize"]}`, nil
		case strings.HasPrefix(req.SystemPrompt, "You summarize"):
			return `{"summaries":[{"title":"AI beats benchmark","summary":"Models improved."}]}`, nil
		case strings.HasPrefix(req.SystemPrompt, "You review"):
			return review(int(reviews.Add(1) - 1)), nil
		case strings.HasPrefix(req.SystemPrompt, "You route"):
			return route, nil
		}
		return "", errors.New("unexpected prompt")
	})
}

func promptsStarting(mock *llm.MockClient, prefix string) []llm.CompletionRequest {
	var out []llm.CompletionRequest
	for _, call := range mock.Calls() {
		if strings.HasPrefix(call.SystemPrompt, prefix) {
			out = append(out, call)
		}
	}
	return out
}

func TestNewsGraph_Structure(t *testing.T) {
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	assert.Equal(t, NodePlanner, graph.EntryPoint())
	assert.Equal(t, NodeReport, graph.FinishPoint())
	assert.True(t, graph.IsConditional(NodeRoute))
	assert.ElementsMatch(t,
		[]string{NodePlanner, NodeFetch, NodeFilter, NodeSummarize, NodeReport},
		graph.RoutingTargets(NodeRoute))
	assert.Equal(t, NodeReport, graph.DefaultSuccessor(NodeRoute))
	assert.Equal(t, flowgraph.KindAgent, graph.Kind(NodeSummarize))
	assert.Equal(t, flowgraph.KindTool, graph.Kind(NodeFilter))
}

func TestNewsGraph_PassingReview(t *testing.T) {
	mock := newsModel(func(int) string { return passingReview }, `{"next_agent":"summarize"}`)
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(testSettings(), runDate))
	require.NoError(t, err)

	var filtered feeds.FilteredArticles
	require.NoError(t, result.Decode(Output(NodeFilter), &filtered))
	require.Len(t, filtered.FilteredArticles, 1)
	assert.Equal(t, "AI beats benchmark", filtered.FilteredArticles[0].Title)
	assert.Equal(t, []string{"AI"}, filtered.FilteredArticles[0].MatchingKeywords)

	// A passing review wins over the router's own decision.
	assert.Len(t, result.Messages(Output(NodeSummarize)), 1)

	out := result.String(FieldReport)
	assert.Contains(t, out, "Run date: 2024-05-01 08:00:00")
	assert.Contains(t, out, "1. AI beats benchmark")
	assert.Contains(t, out, "Link: https://example.com/ai")
	assert.Contains(t, out, "Models improved.")
	assert.Empty(t, result.Err())
}

func TestNewsGraph_ReviewLoop(t *testing.T) {
	mock := newsModel(func(n int) string {
		if n == 0 {
			return failingReview
		}
		return passingReview
	}, `{"next_agent":"summarize"}`)
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(testSettings(), runDate))
	require.NoError(t, err)

	summaries := promptsStarting(mock, "You summarize")
	require.Len(t, summaries, 2)
	assert.NotContains(t, summaries[0].SystemPrompt, "Summaries too short")
	assert.Contains(t, summaries[1].SystemPrompt, "Summaries too short")

	assert.Len(t, result.Messages(Output(NodeSummarize)), 2)
	assert.Len(t, result.Messages(Output(NodeReview)), 2)
	assert.Len(t, promptsStarting(mock, "You plan"), 1)
	assert.Contains(t, result.String(FieldReport), "Models improved.")
}

func TestNewsGraph_NeverPasses(t *testing.T) {
	mock := newsModel(func(int) string { return failingReview }, `{"next_agent":"summarize"}`)
	cfg := testSettings()
	cfg.MaxSteps = 12
	graph, err := NewsGraph(cfg, newsDeps())
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(cfg, runDate), RunOptions(cfg, GraphNews, "", nil)...)

	var limitErr *flowgraph.RecursionLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 12, limitErr.Max)
	assert.Contains(t, result.Err(), "recursion limit")
	assert.False(t, result.Has(FieldReport))

	partial, ok := limitErr.State.(state.State)
	require.True(t, ok)
	assert.NotEmpty(t, partial.Messages(Output(NodeReview)))
}

func TestNewsGraph_UnknownRouteFallsBack(t *testing.T) {
	mock := newsModel(func(int) string { return failingReview }, `{"next_agent":"archive"}`)
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(testSettings(), runDate))
	require.NoError(t, err)

	out := result.String(FieldReport)
	assert.Contains(t, out, "Articles: 0 of 1 summaries included")
	assert.Contains(t, out, "- AI beats benchmark: Too short.")
}

func TestNewsGraph_MalformedRouteFallsBack(t *testing.T) {
	mock := newsModel(func(int) string { return failingReview }, "send it back to the writers")
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(testSettings(), runDate))
	require.NoError(t, err)
	assert.True(t, result.Has(FieldReport))
}

func TestNewsGraph_ModelFailureIsRecorded(t *testing.T) {
	base := newsModel(func(int) string { return passingReview }, `{"next_agent":"report"}`)
	mock := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if strings.HasPrefix(req.SystemPrompt, "You summarize") {
			return nil, llm.NewError("mock", "complete", errors.New("model unavailable"), false)
		}
		return base.Complete(ctx, req)
	})
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(testSettings(), runDate))
	require.NoError(t, err)

	assert.Contains(t, result.String(Output(NodeSummarize)), `"error"`)
	assert.Contains(t, result.String(FieldReport), "Summarization failed")
}

func TestNewsGraph_MissingFeeds(t *testing.T) {
	mock := newsModel(func(int) string { return passingReview }, `{"next_agent":"report"}`)
	graph, err := NewsGraph(testSettings(), newsDeps())
	require.NoError(t, err)

	seed := NewsSeed(Settings{Keywords: []string{"AI"}}, runDate)
	result, err := graph.Run(testContext(mock), seed)

	var missing *agent.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldRSSURLs, missing.Field)
	assert.NotEmpty(t, result.Err())
}

func TestNewsGraph_BatchesSummaries(t *testing.T) {
	var articles []feeds.Article
	scraper := stubScraper{}
	for _, title := range []string{"AI one", "AI two", "AI three"} {
		link := "https://example.com/" + strings.ReplaceAll(title, " ", "-")
		articles = append(articles, feeds.Article{Title: title, Link: link})
		scraper[link] = title + " body"
	}
	deps := NewsDeps{Fetcher: stubFetcher{articles: articles}, Scraper: scraper}
	cfg := testSettings()
	cfg.Batch.SummarizeSize = 2

	mock := newsModel(func(int) string { return passingReview }, `{"next_agent":"report"}`)
	graph, err := NewsGraph(cfg, deps)
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(cfg, runDate))
	require.NoError(t, err)

	assert.Len(t, promptsStarting(mock, "You summarize"), 2)
	var doc struct {
		Summaries []feeds.Summary `json:"summaries"`
	}
	require.NoError(t, result.Decode(Output(NodeSummarize), &doc))
	assert.Len(t, doc.Summaries, 2)
}

func TestNewsGraph_FailedReviewPageBlocksPass(t *testing.T) {
	deps := NewsDeps{
		Fetcher: stubFetcher{articles: []feeds.Article{
			{Title: "AI one", Link: "https://example.com/one"},
			{Title: "AI two", Link: "https://example.com/two"},
		}},
		Scraper: stubScraper{
			"https://example.com/one": "First body.",
			"https://example.com/two": "Second body.",
		},
	}
	cfg := testSettings()
	cfg.Batch.ReviewSize = 1

	mock := llm.NewMockClient("").WithHandler(func(req llm.CompletionRequest) (string, error) {
		user := req.Messages[len(req.Messages)-1].Content
		switch {
		case strings.HasPrefix(req.SystemPrompt, "You plan"):
			return `{"plan":["fetch","filter","summarize"]}`, nil
		case strings.HasPrefix(req.SystemPrompt, "You summarize"):
			return `{"summaries":[{"title":"AI one","summary":"One."},{"title":"AI two","summary":"Two."}]}`, nil
		case strings.HasPrefix(req.SystemPrompt, "You review"):
			if strings.Contains(user, "AI two") {
				return "", llm.NewError("mock", "complete", errors.New("down"), false)
			}
			return `{"reviews":[{"title":"AI one","pass_review":true}],"pass_review":true,"feedback":"ok"}`, nil
		case strings.HasPrefix(req.SystemPrompt, "You route"):
			return `{"next_agent":"report"}`, nil
		}
		return "", errors.New("unexpected prompt")
	})
	graph, err := NewsGraph(cfg, deps)
	require.NoError(t, err)

	result, err := graph.Run(testContext(mock), NewsSeed(cfg, runDate))
	require.NoError(t, err)

	var review map[string]any
	require.NoError(t, result.Decode(Output(NodeReview), &review))
	assert.Equal(t, false, review["pass_review"])
	assert.Contains(t, review["error"], "down")

	// The router was consulted instead of the pass shortcut.
	assert.Len(t, promptsStarting(mock, "You route"), 1)

	out := result.String(FieldReport)
	assert.Contains(t, out, "Articles: 1 of 2 summaries included")
	assert.Contains(t, out, "Review failed: llm mock complete: down")
	assert.Contains(t, out, "Not reviewed:")
	assert.Contains(t, out, "- AI two")
}

func TestFetchArticles_DefaultFetcherUsesRunLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	ctx := flowgraph.NewContext(context.Background(),
		flowgraph.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)
	seed := state.New(map[string]any{FieldRSSURLs: []string{srv.URL}})

	out, err := fetchArticles(nil, testSettings())(ctx, seed)
	require.NoError(t, err)

	assert.Empty(t, out.(feeds.ArticleList).Articles)
	assert.Contains(t, buf.String(), `"msg":"skipping feed"`)
	assert.Contains(t, buf.String(), srv.URL)
}
