package lexicon

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex := Default()
	require.NotNil(t, lex)
	assert.Greater(t, lex.Len(), 50)
	assert.Equal(t, "es", lex.Language())

	e, ok := lex.Lookup("excelente")
	require.True(t, ok)
	assert.Equal(t, 1.0, e.Polarity)
	assert.False(t, e.IsModifier())

	muy, ok := lex.Lookup("muy")
	require.True(t, ok)
	assert.True(t, muy.IsModifier())

	assert.True(t, lex.IsNegation("no"))
	assert.True(t, lex.IsNegation("nunca"))
	assert.False(t, lex.IsNegation("bueno"))
}

func TestParseWrapperAndBareMap(t *testing.T) {
	wrapper := []byte(`
language: en
negations: [Not]
words:
  Good: {polarity: 0.7, subjectivity: 0.6}
`)
	lex, err := Parse(wrapper)
	require.NoError(t, err)
	assert.Equal(t, "en", lex.Language())
	e, ok := lex.Lookup("good")
	require.True(t, ok, "keys are lowercased")
	assert.Equal(t, 0.7, e.Polarity)
	assert.True(t, lex.IsNegation("not"))

	bare := []byte(`
bad: {polarity: -0.7, subjectivity: 0.67}
awful: {polarity: -1.0, subjectivity: 1.0}
`)
	lex, err = Parse(bare)
	require.NoError(t, err)
	assert.Equal(t, 2, lex.Len())
	assert.Equal(t, "", lex.Language())
}

func TestParseRejectsEmptyAndGarbage(t *testing.T) {
	_, err := Parse([]byte(`{}`))
	assert.Error(t, err)

	_, err = Parse([]byte("words: [1, 2"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feliz: {polarity: 0.8, subjectivity: 1.0}\n"), 0o644))

	lex, err := Load(path)
	require.NoError(t, err)
	_, ok := lex.Lookup("feliz")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnsureLexicon_LocalCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x: {polarity: 1}\n"), 0o644))

	// The file exists, so no url is needed and nothing is downloaded.
	require.NoError(t, EnsureLexicon(context.Background(), path, ""))
}

func TestEnsureLexicon_MissingWithoutURL(t *testing.T) {
	err := EnsureLexicon(context.Background(), filepath.Join(t.TempDir(), "lex.yaml"), "")
	assert.Error(t, err)
}

func TestEnsureLexicon_Download(t *testing.T) {
	doc := []byte("words:\n  bravo: {polarity: 0.9, subjectivity: 0.9}\n")
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(doc)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lex.yaml":
			w.Write(doc)
		case "/lex.yaml.gz":
			w.Write(gz.Bytes())
		case "/broken.yaml":
			w.Write([]byte("{}"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	for _, name := range []string{"lex.yaml", "lex.yaml.gz"} {
		dest := filepath.Join(dir, name+".local")
		require.NoError(t, EnsureLexicon(context.Background(), dest, srv.URL+"/"+name), name)

		lex, err := Load(dest)
		require.NoError(t, err, name)
		_, ok := lex.Lookup("bravo")
		assert.True(t, ok, name)
	}

	dest := filepath.Join(dir, "broken.local")
	assert.Error(t, EnsureLexicon(context.Background(), dest, srv.URL+"/broken.yaml"))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "an invalid download must not leave a file behind")

	assert.Error(t, EnsureLexicon(context.Background(), filepath.Join(dir, "nf"), srv.URL+"/nope"))
}
