package agent

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

type article struct {
	Title string `json:"title"`
}

func filterState(t *testing.T, n int) state.State {
	t.Helper()
	articles := make([]article, n)
	for i := range articles {
		articles[i] = article{Title: string(rune('A' + i))}
	}
	s, err := state.AppendJSON("filter_response", "filter", map[string]any{"filtered_articles": articles})
	require.NoError(t, err)
	return s
}

// summarizer answers with the titles of the page it was given. Earlier
// pages answer more slowly so completion order differs from page order.
func summarizer(t *testing.T, active, peak *int32) func(llm.CompletionRequest) (string, error) {
	return func(req llm.CompletionRequest) (string, error) {
		cur := atomic.AddInt32(active, 1)
		defer atomic.AddInt32(active, -1)
		for {
			old := atomic.LoadInt32(peak)
			if cur <= old || atomic.CompareAndSwapInt32(peak, old, cur) {
				break
			}
		}

		var page []article
		body := strings.TrimPrefix(req.Messages[0].Content, "Articles: ")
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			t.Errorf("page is not a JSON list: %v", err)
		}
		time.Sleep(time.Duration(5-int(page[0].Title[0]-'A')) * time.Millisecond)

		titles := make([]string, len(page))
		for i, a := range page {
			titles[i] = a.Title
		}
		out, _ := json.Marshal(map[string]any{"summaries": titles, "pass_review": true, "feedback": "page " + page[0].Title})
		return string(out), nil
	}
}

func TestBatch_MergesInPageOrder(t *testing.T) {
	var active, peak int32
	mock := llm.NewMockClient("").WithHandler(summarizer(t, &active, &peak))
	node := New(Spec{
		Name:   "summarize",
		Prompt: "Articles: ${articles}",
		Inputs: []Input{{Var: "articles", Key: "filter_response"}},
		JSON:   true,
		Batch:  &Batch{Var: "articles", Key: "filtered_articles", Size: 2, Concurrency: 2},
	})

	update, err := node(newCtx(mock, nil), filterState(t, 5))
	require.NoError(t, err)

	assert.Equal(t, 3, mock.CallCount())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))

	var merged struct {
		Summaries  []string `json:"summaries"`
		PassReview bool     `json:"pass_review"`
		Feedback   string   `json:"feedback"`
	}
	require.NoError(t, update.Decode("summarize_response", &merged))
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, merged.Summaries)
	assert.True(t, merged.PassReview)
	assert.Equal(t, "page A\npage C\npage E", merged.Feedback)
	assert.Len(t, update.Messages("summarize_response"), 1)
}

func TestBatch_EmptyListSendsOneCall(t *testing.T) {
	mock := llm.NewMockClient(`{"summaries": []}`)
	node := New(Spec{
		Name:   "summarize",
		Prompt: "Articles: ${articles}",
		Inputs: []Input{{Var: "articles", Key: "filter_response"}},
		JSON:   true,
		Batch:  &Batch{Var: "articles", Key: "filtered_articles", Size: 2},
	})
	s := state.Append("filter_response", state.Message{Content: `{"filtered_articles": []}`})

	update, err := node(newCtx(mock, nil), s)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, `{"summaries":[]}`, update.String("summarize_response"))
}

func TestBatch_PageFailureRecorded(t *testing.T) {
	calls := int32(0)
	mock := llm.NewMockClient("").WithHandler(func(llm.CompletionRequest) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return `{"summaries": ["A"]}`, nil
		}
		return "", llm.NewError("groq", "complete", assert.AnError, false)
	})
	node := New(Spec{
		Name:   "summarize",
		Prompt: "Articles: ${articles}",
		Inputs: []Input{{Var: "articles", Key: "filter_response"}},
		JSON:   true,
		Batch:  &Batch{Var: "articles", Key: "filtered_articles", Size: 1, Concurrency: 1},
	})

	update, err := node(newCtx(mock, nil), filterState(t, 2))
	require.NoError(t, err)

	var merged map[string]any
	require.NoError(t, update.Decode("summarize_response", &merged))
	assert.Equal(t, []any{"A"}, merged["summaries"])
	assert.Contains(t, merged["error"], assert.AnError.Error())
}

func TestBatchItems(t *testing.T) {
	items, err := batchItems(`[1,2,3]`, "")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = batchItems(`{"xs": [1]}`, "xs")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = batchItems(`{"ys": [1]}`, "xs")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = batchItems("", "xs")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = batchItems(`"text"`, "")
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []json.RawMessage{[]byte("1"), []byte("2"), []byte("3")}
	pages := paginate(items, 2)
	require.Len(t, pages, 2)
	assert.Equal(t, "[1,2]", string(pages[0]))
	assert.Equal(t, "[3]", string(pages[1]))
}

func TestMergePages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"single page untouched", []string{"raw text"}, "raw text"},
		{"objects", []string{`{"a":[1],"ok":true,"n":1}`, `{"a":[2],"ok":false,"n":2}`}, `{"a":[1,2],"ok":false,"n":2}`},
		{"verdict missing from a page", []string{`{"ok":true}`, `{"error":"down"}`}, `{"ok":false,"error":"down"}`},
		{"verdict missing from first page", []string{`{"error":"down"}`, `{"ok":true}`}, `{"ok":false,"error":"down"}`},
		{"same strings not repeated", []string{`{"s":"x"}`, `{"s":"x"}`}, `{"s":"x"}`},
		{"mixed becomes list", []string{`{"a":1}`, `not json`}, `[{"a":1},"not json"]`},
		{"arrays become list", []string{`[1]`, `[2]`}, `[[1],[2]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergePages(tt.pages)
			if json.Valid([]byte(tt.want)) {
				assert.JSONEq(t, tt.want, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
