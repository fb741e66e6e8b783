package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/japaniel/wikireader/pkg/lexicon"
)

const (
	// MinTokenLength is the shortest letter run counted as a word.
	MinTokenLength = 3
	// MaxFrequentWords bounds the frequent word list everywhere it appears.
	MaxFrequentWords = 10

	PositiveThreshold = 0.1
	NegativeThreshold = -0.1

	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"

	// negationFactor is applied to the polarity of a negated assessment.
	negationFactor = -0.5
	// pendingWindow is how many unknown words a negation or modifier may
	// skip before it stops applying ("no es bueno").
	pendingWindow = 2
)

// letterRun matches maximal runs of letters of any script, so names such as
// "Gödel" or "François" stay whole. Marks are kept for letters that have no
// precomposed NFC form.
var letterRun = regexp.MustCompile(`[\p{L}\p{M}]+`)

// Stopwords are Spanish function words excluded from the frequency ranking.
// Entries shorter than MinTokenLength never reach the filter but are kept so
// the list reads as the full closed set.
var Stopwords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "lo": {}, "un": {}, "una": {}, "unos": {}, "unas": {},
	"y": {}, "o": {}, "e": {}, "u": {}, "de": {}, "del": {}, "al": {}, "a": {}, "en": {},
	"para": {}, "por": {}, "con": {}, "sin": {}, "sobre": {}, "entre": {}, "hasta": {}, "desde": {},
	"son": {}, "es": {}, "ser": {}, "fue": {}, "fueron": {}, "era": {}, "eran": {}, "sido": {}, "han": {}, "ha": {}, "había": {},
	"esto": {}, "eso": {}, "este": {}, "esta": {}, "estos": {}, "estas": {}, "ese": {}, "esa": {}, "esos": {}, "esas": {},
	"tener": {}, "tiene": {}, "tienen": {}, "tenía": {},
	"no": {}, "pero": {}, "sino": {}, "que": {}, "como": {}, "cuando": {}, "donde": {}, "cual": {}, "cuales": {},
	"tú": {}, "tu": {}, "su": {}, "sus": {}, "él": {}, "ella": {}, "ellos": {}, "ellas": {}, "nos": {}, "les": {}, "se": {},
	"acerca": {}, "será": {}, "allí": {}, "qué": {}, "quién": {}, "cómo": {}, "también": {},
	"uno": {}, "dos": {}, "puede": {}, "pueden": {}, "todos": {}, "todas": {}, "más": {}, "muy": {},
	"algunos": {}, "algunas": {}, "cualquier": {}, "cada": {}, "mayoría": {}, "otro": {}, "otra": {}, "otros": {}, "otras": {},
}

// WordCount is one entry of the frequent word list. On the wire it is the
// two-element array ["word", count].
type WordCount struct {
	Word  string
	Count int
}

// MarshalJSON encodes the pair as ["word", count].
func (w WordCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{w.Word, w.Count})
}

// UnmarshalJSON accepts ["word", count]. Fractional counts are truncated.
func (w *WordCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("word count: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("word count: want [word, count], got %d elements", len(pair))
	}
	var word string
	if err := json.Unmarshal(pair[0], &word); err != nil {
		return fmt.Errorf("word count: word: %w", err)
	}
	var count float64
	if err := json.Unmarshal(pair[1], &count); err != nil {
		return fmt.Errorf("word count: count: %w", err)
	}
	w.Word, w.Count = word, int(count)
	return nil
}

// Sentiment holds the polarity/subjectivity scores and the derived label.
type Sentiment struct {
	Polarity     float64
	Subjectivity float64
	Label        string
}

// Result is the full analysis of one text.
type Result struct {
	WordCount     int
	FrequentWords []WordCount
	Sentiment     Sentiment
}

// Analyzer scores text. It holds no mutable state and may be shared.
type Analyzer struct {
	lex *lexicon.Lexicon
}

// NewAnalyzer creates an analyzer over lex. A nil lexicon uses the embedded default.
func NewAnalyzer(lex *lexicon.Lexicon) *Analyzer {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Analyzer{lex: lex}
}

// Analyze computes word count, frequent words and sentiment for text.
func (a *Analyzer) Analyze(text string) Result {
	words := normalizedWords(text)
	tokens := filterTokens(words)
	return Result{
		WordCount:     len(tokens),
		FrequentWords: TopWords(tokens, MaxFrequentWords),
		Sentiment:     a.score(words),
	}
}

// Sentiment scores text without the frequency pass.
func (a *Analyzer) Sentiment(text string) Sentiment {
	return a.score(normalizedWords(text))
}

// Tokenize returns the lowercased letter runs of at least MinTokenLength letters.
func Tokenize(text string) []string {
	return filterTokens(normalizedWords(text))
}

// normalizedWords returns every letter run (any length) of the NFC-normalized,
// lowercased text.
func normalizedWords(text string) []string {
	if text == "" {
		return nil
	}
	// Casers keep state; one per call keeps Analyze safe across goroutines.
	lower := cases.Lower(language.Spanish).String(norm.NFC.String(text))
	return letterRun.FindAllString(lower, -1)
}

func filterTokens(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= MinTokenLength {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// TopWords drops stopwords and returns the n most frequent tokens, by
// descending count and then by first occurrence.
func TopWords(tokens []string, n int) []WordCount {
	counts := make(map[string]int)
	var ordered []string
	for _, t := range tokens {
		if _, stop := Stopwords[t]; stop {
			continue
		}
		if _, seen := counts[t]; !seen {
			ordered = append(ordered, t)
		}
		counts[t]++
	}

	out := make([]WordCount, 0, len(ordered))
	for _, w := range ordered {
		out = append(out, WordCount{Word: w, Count: counts[w]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// score averages the lexicon assessments found in words. A modifier scales
// the next assessment and a negation multiplies its polarity by -0.5.
func (a *Analyzer) score(words []string) Sentiment {
	var polSum, subjSum float64
	var n int

	modifier := 1.0
	negated := false
	skipped := 0
	reset := func() {
		modifier, negated, skipped = 1.0, false, 0
	}

	for _, w := range words {
		if a.lex.IsNegation(w) {
			negated = true
			skipped = 0
			continue
		}
		e, ok := a.lex.Lookup(w)
		if !ok || (e.Polarity == 0 && e.Subjectivity == 0 && e.Intensity == 0) {
			if negated || modifier != 1.0 {
				skipped++
				if skipped > pendingWindow {
					reset()
				}
			}
			continue
		}
		if e.IsModifier() {
			modifier *= e.Intensity
			skipped = 0
			continue
		}

		p := e.Polarity * modifier
		if negated {
			p *= negationFactor
		}
		polSum += clamp(p, -1, 1)
		subjSum += clamp(e.Subjectivity*modifier, 0, 1)
		n++
		reset()
	}

	if n == 0 {
		return Sentiment{Label: LabelNeutral}
	}
	polarity := clamp(polSum/float64(n), -1, 1)
	return Sentiment{
		Polarity:     polarity,
		Subjectivity: clamp(subjSum/float64(n), 0, 1),
		Label:        Label(polarity),
	}
}

// Label maps a polarity to positive, negative or neutral using
// PositiveThreshold and NegativeThreshold (both exclusive).
func Label(polarity float64) string {
	switch {
	case polarity > PositiveThreshold:
		return LabelPositive
	case polarity < NegativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
