package feeds

import (
	"regexp"
	"strings"
)

// FilterByKeywords keeps the articles whose title or content contains a
// keyword as a whole word, case-insensitively. Each kept article is tagged
// with the keywords it matched, in keyword order. With no keywords nothing
// matches.
func FilterByKeywords(articles []Article, keywords []string) []Article {
	type pattern struct {
		keyword string
		re      *regexp.Regexp
	}
	patterns := make([]pattern, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[strings.ToLower(kw)] {
			continue
		}
		seen[strings.ToLower(kw)] = true
		patterns = append(patterns, pattern{
			keyword: kw,
			re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}

	filtered := []Article{}
	for _, a := range articles {
		text := a.Title + "\n" + a.Content
		var matched []string
		for _, p := range patterns {
			if p.re.MatchString(text) {
				matched = append(matched, p.keyword)
			}
		}
		if len(matched) > 0 {
			a.MatchingKeywords = matched
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// ReviewFilter keeps the articles and summaries whose title has a passing
// review.
func ReviewFilter(articles []Article, summaries []Summary, reviews []Review) ([]Article, []Summary) {
	passed := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		if r.PassReview {
			passed[r.Title] = true
		}
	}

	keptArticles := []Article{}
	for _, a := range articles {
		if passed[a.Title] {
			keptArticles = append(keptArticles, a)
		}
	}
	keptSummaries := []Summary{}
	for _, s := range summaries {
		if passed[s.Title] {
			keptSummaries = append(keptSummaries, s)
		}
	}
	return keptArticles, keptSummaries
}
