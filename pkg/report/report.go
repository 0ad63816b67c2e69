// Package report formats pipeline state into human-readable reports.
// Formatting is a pure function of the state: the same state always gives
// the same report, so the date printed is the run's run_date field rather
// than the clock.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/randalmurphal/feedgraph/pkg/feeds"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

// Field names read by the formatters.
const (
	FieldRunDate   = "run_date"
	FieldKeywords  = "keywords"
	FieldFilter    = "filter_response"
	FieldSummarize = "summarize_response"
	FieldReview    = "review_response"

	FieldTextAnalysis = "text_analysis_response"
	FieldAnalysis     = "analysis_response"
	FieldFeedback     = "feedback_response"
	FieldScoring      = "scoring_response"
	FieldParaphrasing = "paraphrasing_response"
)

const rule = "----------------------------------------"

type newsSummaries struct {
	Summaries []feeds.Summary `json:"summaries"`
	Error     string          `json:"error"`
}

type newsReviews struct {
	Reviews    []feeds.Review `json:"reviews"`
	PassReview *bool          `json:"pass_review"`
	Feedback   string         `json:"feedback"`
	Error      string         `json:"error"`
}

// News formats the news pipeline result. Summaries with a failing review
// are left out and their feedback listed, and summaries the review never
// covered are left out and named; without reviews every summary is
// included.
func News(s state.State) string {
	var b strings.Builder
	b.WriteString("News Report\n")
	b.WriteString(strings.Repeat("=", len(rule)) + "\n")
	fmt.Fprintf(&b, "Run date: %s\n", orDash(s.String(FieldRunDate)))
	if kw := s.Strings(FieldKeywords); len(kw) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(kw, ", "))
	}
	b.WriteString("\n")

	var summaries newsSummaries
	summariesOK := decode(s, FieldSummarize, &summaries)
	if !summariesOK {
		if raw := s.String(FieldSummarize); raw != "" {
			b.WriteString("Summaries (unstructured):\n" + rule + "\n" + raw + "\n")
			return b.String()
		}
	}
	if summaries.Error != "" {
		fmt.Fprintf(&b, "Summarization failed: %s\n", summaries.Error)
	}

	var reviews newsReviews
	reviewed := decode(s, FieldReview, &reviews) && len(reviews.Reviews) > 0
	if reviews.Error != "" {
		fmt.Fprintf(&b, "Review failed: %s\n", reviews.Error)
	}

	var filtered feeds.FilteredArticles
	decode(s, FieldFilter, &filtered)
	keywordsByTitle := make(map[string][]string, len(filtered.FilteredArticles))
	linkByTitle := make(map[string]string, len(filtered.FilteredArticles))
	for _, a := range filtered.FilteredArticles {
		keywordsByTitle[a.Title] = a.MatchingKeywords
		linkByTitle[a.Title] = a.Link
	}

	kept := summaries.Summaries
	if reviewed {
		_, kept = feeds.ReviewFilter(nil, summaries.Summaries, reviews.Reviews)
	}
	fmt.Fprintf(&b, "Articles: %d of %d summaries included\n\n", len(kept), len(summaries.Summaries))

	for i, sum := range kept {
		fmt.Fprintf(&b, "%d. %s\n", i+1, orDash(sum.Title))
		link := sum.Link
		if link == "" {
			link = linkByTitle[sum.Title]
		}
		if link != "" {
			fmt.Fprintf(&b, "   Link: %s\n", link)
		}
		if kw := keywordsByTitle[sum.Title]; len(kw) > 0 {
			fmt.Fprintf(&b, "   Keywords: %s\n", strings.Join(kw, ", "))
		}
		fmt.Fprintf(&b, "   %s\n\n", strings.TrimSpace(sum.Summary))
	}

	if reviewed {
		var rejected []feeds.Review
		for _, r := range reviews.Reviews {
			if !r.PassReview {
				rejected = append(rejected, r)
			}
		}
		if len(rejected) > 0 {
			b.WriteString("Excluded by review:\n" + rule + "\n")
			for _, r := range rejected {
				fmt.Fprintf(&b, "- %s: %s\n", orDash(r.Title), orDash(r.Feedback))
			}
			b.WriteString("\n")
		}

		var unreviewed []string
		for _, sum := range summaries.Summaries {
			if !hasReview(reviews.Reviews, sum.Title) {
				unreviewed = append(unreviewed, sum.Title)
			}
		}
		if len(unreviewed) > 0 {
			b.WriteString("Not reviewed:\n" + rule + "\n")
			for _, title := range unreviewed {
				fmt.Fprintf(&b, "- %s\n", orDash(title))
			}
			b.WriteString("\n")
		}
	}
	if reviews.Feedback != "" {
		b.WriteString("Reviewer notes:\n" + rule + "\n" + reviews.Feedback + "\n")
	}
	return b.String()
}

func hasReview(reviews []feeds.Review, title string) bool {
	for _, r := range reviews {
		if r.Title == title {
			return true
		}
	}
	return false
}

// Writing formats the writing assessment result.
func Writing(s state.State) string {
	var b strings.Builder
	b.WriteString("IELTS Writing Task Analysis Report\n")
	b.WriteString(strings.Repeat("=", len(rule)) + "\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", orDash(s.String(FieldRunDate)))

	analysis := map[string]any{}
	for _, field := range []string{FieldTextAnalysis, FieldAnalysis} {
		doc := object(s, field)
		for k, v := range doc {
			analysis[k] = v
		}
	}
	section(&b, "Analysis Results")
	for _, k := range sortedKeys(analysis) {
		data, _ := json.MarshalIndent(analysis[k], "", "  ")
		fmt.Fprintf(&b, "%s:\n%s\n\n", k, data)
	}

	feedback := object(s, FieldFeedback)
	section(&b, "Feedback")
	writeNested(&b, feedback, "improvements")
	b.WriteString("\n")

	section(&b, "Scores")
	writeNested(&b, object(s, FieldScoring), "")
	b.WriteString("\n")

	section(&b, "Paraphrased Content")
	paraphrased := s.String(FieldParaphrasing)
	paraphrasing := object(s, FieldParaphrasing)
	if text, ok := paraphrasing["paraphrased_text"].(string); ok {
		paraphrased = text
	}
	b.WriteString(strings.TrimSpace(paraphrased) + "\n\n")

	improvements, ok := feedback["improvements"].(map[string]any)
	if !ok {
		improvements, ok = paraphrasing["improvements"].(map[string]any)
	}
	if ok && len(improvements) > 0 {
		section(&b, "Suggestions for Improvement")
		for _, category := range sortedKeys(improvements) {
			fmt.Fprintf(&b, "%s:\n", capitalize(category))
			for _, item := range asList(improvements[category]) {
				fmt.Fprintf(&b, "  - %s\n", item)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString(title + ":\n" + rule + "\n")
}

// writeNested prints a document one level deep, skipping the skip key.
// Non-object documents are stored under "raw" by object.
func writeNested(b *strings.Builder, doc map[string]any, skip string) {
	for _, k := range sortedKeys(doc) {
		if k == skip {
			continue
		}
		switch v := doc[k].(type) {
		case map[string]any:
			fmt.Fprintf(b, "%s:\n", k)
			for _, sub := range sortedKeys(v) {
				if list, ok := v[sub].([]any); ok {
					fmt.Fprintf(b, "  %s:\n", sub)
					for _, item := range list {
						fmt.Fprintf(b, "    - %s\n", scalar(item))
					}
					continue
				}
				fmt.Fprintf(b, "  %s: %s\n", sub, scalar(v[sub]))
			}
		case []any:
			fmt.Fprintf(b, "%s:\n", k)
			for _, item := range v {
				fmt.Fprintf(b, "  - %s\n", scalar(item))
			}
		default:
			fmt.Fprintf(b, "%s: %s\n", k, scalar(v))
		}
	}
}

// object decodes a JSON object field. Text that is not an object is
// returned under "raw"; an absent field gives nil.
func object(s state.State, key string) map[string]any {
	if !s.Has(key) {
		return nil
	}
	var doc map[string]any
	if err := s.Decode(key, &doc); err != nil || doc == nil {
		return map[string]any{"raw": s.String(key)}
	}
	return doc
}

func decode(s state.State, key string, out any) bool {
	return s.Has(key) && s.Decode(key, out) == nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, scalar(item))
		}
		return out
	case nil:
		return nil
	}
	return []string{scalar(v)}
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(val)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
