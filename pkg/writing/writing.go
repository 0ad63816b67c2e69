// Package writing holds the writing pipeline's tool collaborators: text
// preprocessing, surface-level text analysis, and the knowledge base
// loader. The analysis is deliberately simple; the agent steps do the
// assessment.
package writing

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Preprocessed is the tokenized input text.
type Preprocessed struct {
	Text          string   `json:"text"`
	Words         []string `json:"words"`
	Sentences     []string `json:"sentences"`
	Paragraphs    int      `json:"paragraphs"`
	WordCount     int      `json:"word_count"`
	SentenceCount int      `json:"sentence_count"`
}

// Analysis holds text statistics for the assessment prompts.
type Analysis struct {
	ReadabilityScore          float64     `json:"readability_score"`
	LexicalDiversity          float64     `json:"lexical_diversity"`
	AverageSentenceLength     float64     `json:"average_sentence_length"`
	AverageWordLength         float64     `json:"average_word_length"`
	LongWordRatio             float64     `json:"long_word_ratio"`
	SentenceSimilarities      []float64   `json:"sentence_similarities"`
	AverageSentenceSimilarity float64     `json:"average_sentence_similarity"`
	RepeatedWords             []WordCount `json:"repeated_words"`
	MeetsMinimumLength        bool        `json:"meets_minimum_length"`
}

// WordCount is a word and its number of occurrences.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// MinimumWords is the IELTS Task 2 minimum length.
const MinimumWords = 250

var (
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’-][\p{L}\p{N}]+)*`)
	sentencePattern  = regexp.MustCompile(`[^.!?]+[.!?]*`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n`)
)

// stopWords are excluded from repetition counts.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "it": true,
	"this": true, "that": true, "as": true, "by": true, "at": true, "from": true,
	"their": true, "they": true, "i": true, "we": true, "not": true, "can": true,
}

// Preprocess splits text into words, sentences and paragraphs.
func Preprocess(text string) Preprocessed {
	text = strings.TrimSpace(text)
	p := Preprocessed{Text: text, Words: wordPattern.FindAllString(text, -1)}
	if p.Words == nil {
		p.Words = []string{}
	}
	p.Sentences = []string{}
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); wordPattern.MatchString(s) {
			p.Sentences = append(p.Sentences, s)
		}
	}
	if text != "" {
		p.Paragraphs = len(paragraphPattern.Split(text, -1))
	}
	p.WordCount = len(p.Words)
	p.SentenceCount = len(p.Sentences)
	return p
}

// Analyze computes statistics over preprocessed text.
func Analyze(p Preprocessed) Analysis {
	a := Analysis{
		SentenceSimilarities: []float64{},
		RepeatedWords:        []WordCount{},
		MeetsMinimumLength:   p.WordCount >= MinimumWords,
	}
	if p.WordCount == 0 {
		return a
	}

	sentences := max(p.SentenceCount, 1)
	syllables, letters, long := 0, 0, 0
	distinct := make(map[string]int, len(p.Words))
	for _, w := range p.Words {
		lw := strings.ToLower(w)
		distinct[lw]++
		n := countLetters(w)
		letters += n
		if n > 6 {
			long++
		}
		syllables += countSyllables(lw)
	}

	words := float64(p.WordCount)
	a.AverageSentenceLength = round(words / float64(sentences))
	a.AverageWordLength = round(float64(letters) / words)
	a.LexicalDiversity = round(float64(len(distinct)) / words)
	a.LongWordRatio = round(float64(long) / words)
	a.ReadabilityScore = round(206.835 - 1.015*(words/float64(sentences)) - 84.6*(float64(syllables)/words))

	for i := 1; i < len(p.Sentences); i++ {
		a.SentenceSimilarities = append(a.SentenceSimilarities, round(jaccard(p.Sentences[i-1], p.Sentences[i])))
	}
	if len(a.SentenceSimilarities) > 0 {
		sum := 0.0
		for _, s := range a.SentenceSimilarities {
			sum += s
		}
		a.AverageSentenceSimilarity = round(sum / float64(len(a.SentenceSimilarities)))
	}

	for w, n := range distinct {
		if n > 2 && !stopWords[w] {
			a.RepeatedWords = append(a.RepeatedWords, WordCount{Word: w, Count: n})
		}
	}
	sort.Slice(a.RepeatedWords, func(i, j int) bool {
		if a.RepeatedWords[i].Count != a.RepeatedWords[j].Count {
			return a.RepeatedWords[i].Count > a.RepeatedWords[j].Count
		}
		return a.RepeatedWords[i].Word < a.RepeatedWords[j].Word
	})
	if len(a.RepeatedWords) > 10 {
		a.RepeatedWords = a.RepeatedWords[:10]
	}
	return a
}

// LoadKnowledgeBase reads the rubric text used as prompt context.
func LoadKnowledgeBase(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load knowledge base: %w", err)
	}
	return string(data), nil
}

func countLetters(w string) int {
	n := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// countSyllables estimates syllables as vowel groups, dropping a silent
// trailing e. Every word has at least one.
func countSyllables(w string) int {
	count := 0
	prevVowel := false
	for _, r := range w {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	return max(count, 1)
}

func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(setA)+len(setB)-inter)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		set[w] = true
	}
	return set
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}
