package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultLexicon []byte

// Entry is the sentiment weight of a single word.
type Entry struct {
	Polarity     float64 `yaml:"polarity"`
	Subjectivity float64 `yaml:"subjectivity"`
	// Intensity marks a modifier ("muy", "very") that scales the next
	// sentiment-bearing word. Zero means the word is not a modifier.
	Intensity float64 `yaml:"intensity"`
}

// IsModifier reports whether the entry scales the following word rather than
// carrying sentiment itself.
func (e Entry) IsModifier() bool {
	return e.Intensity != 0 && e.Polarity == 0 && e.Subjectivity == 0
}

// File matches the structure of a lexicon YAML document.
type File struct {
	Language  string           `yaml:"language"`
	Negations []string         `yaml:"negations"`
	Words     map[string]Entry `yaml:"words"`
}

// Lexicon is an in-memory word index. It is never mutated after New, so
// lookups are safe from any number of goroutines.
type Lexicon struct {
	language  string
	words     map[string]Entry
	negations map[string]struct{}
}

// New builds a lexicon from a parsed file. Keys are NFC-normalized and lowercased.
func New(f File) *Lexicon {
	l := &Lexicon{
		language:  f.Language,
		words:     make(map[string]Entry, len(f.Words)),
		negations: make(map[string]struct{}, len(f.Negations)),
	}
	for w, e := range f.Words {
		l.words[normalizeKey(w)] = e
	}
	for _, n := range f.Negations {
		l.negations[normalizeKey(n)] = struct{}{}
	}
	return l
}

func normalizeKey(w string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(w)))
}

// Parse reads a lexicon document. Both the wrapper form
// ({language, negations, words}) and a bare word → entry map are accepted.
func Parse(data []byte) (*Lexicon, error) {
	var f File
	// Try the wrapper first
	if err := yaml.Unmarshal(data, &f); err == nil && len(f.Words) > 0 {
		return New(f), nil
	}

	var words map[string]Entry
	if err := yaml.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("parse lexicon as wrapper or word map: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("lexicon has no words")
	}
	return New(File{Words: words}), nil
}

// Load reads and parses the lexicon file at path.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	lex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

var loadDefault = sync.OnceValue(func() *Lexicon {
	lex, err := Parse(defaultLexicon)
	if err != nil {
		panic("lexicon: embedded default is invalid: " + err.Error())
	}
	return lex
})

// Default returns the embedded Spanish/English lexicon.
func Default() *Lexicon { return loadDefault() }

// Lookup returns the entry for a lowercase word.
func (l *Lexicon) Lookup(word string) (Entry, bool) {
	e, ok := l.words[word]
	return e, ok
}

// IsNegation reports whether word flips the polarity of the next assessment.
func (l *Lexicon) IsNegation(word string) bool {
	_, ok := l.negations[word]
	return ok
}

// Len returns the number of words in the lexicon.
func (l *Lexicon) Len() int { return len(l.words) }

// Language returns the declared content language, if any.
func (l *Lexicon) Language() string { return l.language }
