package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/wikireader/pkg/lexicon"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The cat sat on a mat")
	assert.Equal(t, []string{"the", "cat", "sat", "mat"}, tokens)

	res := NewAnalyzer(nil).Analyze("The cat sat on a mat")
	assert.Equal(t, 4, res.WordCount)
}

func TestTokenizeSpanishLetters(t *testing.T) {
	tokens := Tokenize("¡Canción ÑANDÚ! El pingüino—corazón; año 2024: más")
	assert.Equal(t, []string{"canción", "ñandú", "pingüino", "corazón", "año", "más"}, tokens)
}

func TestTokenizeNormalizesDecomposedAccents(t *testing.T) {
	// "canción" written with a combining acute accent.
	decomposed := "cancio\u0301n"
	assert.Equal(t, []string{"canción"}, Tokenize(decomposed))
}

func TestTokenizeKeepsForeignNamesWhole(t *testing.T) {
	assert.Equal(t, []string{"françois"}, Tokenize("François"))
	assert.Equal(t, []string{"gödel"}, Tokenize("Gödel"))
	assert.Equal(t, []string{"dvořák", "ångström"}, Tokenize("Dvořák, Ångström"))

	res := NewAnalyzer(nil).Analyze("Kurt Gödel y François Mitterrand")
	assert.Equal(t, 4, res.WordCount)
	assert.Equal(t, []WordCount{{"kurt", 1}, {"gödel", 1}, {"françois", 1}, {"mitterrand", 1}}, res.FrequentWords)
}

func TestTokenizeNonLettersSplitRuns(t *testing.T) {
	// Digits and punctuation bound runs; short pieces are dropped.
	assert.Equal(t, []string{"abc", "defg"}, Tokenize("abc1de2defg"))
	assert.Equal(t, []string{"xyz"}, Tokenize("ab_xyz"))
}

func TestTopWordsTieBreakByFirstOccurrence(t *testing.T) {
	text := strings.Repeat("beta alfa ", 5) + "gamma"
	res := NewAnalyzer(nil).Analyze(text)
	require.Len(t, res.FrequentWords, 3)
	assert.Equal(t, WordCount{"beta", 5}, res.FrequentWords[0])
	assert.Equal(t, WordCount{"alfa", 5}, res.FrequentWords[1])
	assert.Equal(t, WordCount{"gamma", 1}, res.FrequentWords[2])
	assert.Equal(t, 11, res.WordCount)
}

func TestTopWordsDropsStopwords(t *testing.T) {
	res := NewAnalyzer(nil).Analyze("Los gatos y los perros para los gatos")
	assert.Equal(t, []WordCount{{"gatos", 2}, {"perros", 1}}, res.FrequentWords)
	// wordCount is taken before stopword removal: los gatos los perros para los gatos
	assert.Equal(t, 7, res.WordCount)
}

func TestTopWordsBounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "palabra%sx ", spell(i))
	}
	res := NewAnalyzer(nil).Analyze(b.String())
	assert.Equal(t, 1000, res.WordCount)
	assert.Len(t, res.FrequentWords, MaxFrequentWords)
	for _, fw := range res.FrequentWords {
		assert.GreaterOrEqual(t, fw.Count, 1)
	}
}

// spell turns a number into a letters-only suffix so each word is distinct.
func spell(n int) string {
	const letters = "abcdefghij"
	s := fmt.Sprint(n)
	out := make([]byte, len(s))
	for i := range s {
		out[i] = letters[s[i]-'0']
	}
	return string(out)
}

func TestAnalyzeEmpty(t *testing.T) {
	res := NewAnalyzer(nil).Analyze("")
	assert.Equal(t, 0, res.WordCount)
	assert.Empty(t, res.FrequentWords)
	assert.Equal(t, Sentiment{Polarity: 0, Subjectivity: 0, Label: LabelNeutral}, res.Sentiment)
}

func TestLabelBoundaries(t *testing.T) {
	cases := []struct {
		polarity float64
		want     string
	}{
		{0.1, LabelNeutral},
		{0.1000001, LabelPositive},
		{-0.1, LabelNeutral},
		{-0.1000001, LabelNegative},
		{0, LabelNeutral},
		{1, LabelPositive},
		{-1, LabelNegative},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Label(c.polarity), "polarity %v", c.polarity)
	}
}

func TestSentimentRangesAndDirection(t *testing.T) {
	a := NewAnalyzer(nil)

	pos := a.Sentiment("Es una ciudad hermosa y un lugar excelente")
	assert.Equal(t, LabelPositive, pos.Label)
	assert.InDelta(t, 0.925, pos.Polarity, 1e-9)

	neg := a.Sentiment("Fue una guerra terrible, un desastre horrible")
	assert.Equal(t, LabelNegative, neg.Label)

	neutral := a.Sentiment("El río cruza la región norte")
	assert.Equal(t, Sentiment{Label: LabelNeutral}, neutral)

	for _, s := range []Sentiment{pos, neg, neutral} {
		assert.GreaterOrEqual(t, s.Polarity, -1.0)
		assert.LessOrEqual(t, s.Polarity, 1.0)
		assert.GreaterOrEqual(t, s.Subjectivity, 0.0)
		assert.LessOrEqual(t, s.Subjectivity, 1.0)
	}
}

func TestSentimentMonotonic(t *testing.T) {
	a := NewAnalyzer(nil)
	base := "La ciudad tiene un clima bueno pero una historia difícil."

	before := a.Sentiment(base)
	morePositive := a.Sentiment(base + " Es excelente, maravillosa.")
	moreNegative := a.Sentiment(base + " Fue terrible, horrible.")
	moreSubjective := a.Sentiment(base + " Creo que es brillante.")

	assert.Greater(t, morePositive.Polarity, before.Polarity)
	assert.Less(t, moreNegative.Polarity, before.Polarity)
	assert.Greater(t, moreSubjective.Subjectivity, before.Subjectivity)
}

func TestSentimentNegationAndModifiers(t *testing.T) {
	a := NewAnalyzer(nil)

	plain := a.Sentiment("bueno")
	negated := a.Sentiment("no es bueno")
	assert.InDelta(t, 0.7, plain.Polarity, 1e-9)
	assert.InDelta(t, -0.35, negated.Polarity, 1e-9)

	intensified := a.Sentiment("muy bueno")
	assert.InDelta(t, 0.91, intensified.Polarity, 1e-9)

	capped := a.Sentiment("extremadamente excelente")
	assert.Equal(t, 1.0, capped.Polarity)
	assert.Equal(t, 1.0, capped.Subjectivity)

	// A negation far from the sentiment word no longer applies.
	far := a.Sentiment("no hay nada aquí bueno")
	assert.InDelta(t, 0.7, far.Polarity, 1e-9)
}

func TestAnalyzerCustomLexicon(t *testing.T) {
	lex := lexicon.New(lexicon.File{Words: map[string]lexicon.Entry{
		"zorp": {Polarity: -0.9, Subjectivity: 0.2},
	}})
	s := NewAnalyzer(lex).Sentiment("Zorp zorp")
	assert.InDelta(t, -0.9, s.Polarity, 1e-9)
	assert.Equal(t, LabelNegative, s.Label)
}

func TestAnalyzeConcurrent(t *testing.T) {
	a := NewAnalyzer(nil)
	text := "Una historia hermosa sobre una ciudad excelente y muy popular"
	want := a.Analyze(text)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, a.Analyze(text))
		}()
	}
	wg.Wait()
}

func TestWordCountJSON(t *testing.T) {
	data, err := json.Marshal([]WordCount{{"x", 3}, {"y", 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["x",3],["y",1]]`, string(data))

	var got []WordCount
	require.NoError(t, json.Unmarshal([]byte(`[["x",3],["y",1.0]]`), &got))
	assert.Equal(t, []WordCount{{"x", 3}, {"y", 1}}, got)

	assert.Error(t, json.Unmarshal([]byte(`[["x"]]`), &got))
	assert.Error(t, json.Unmarshal([]byte(`[[1,2]]`), &got))
	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &got))
}
