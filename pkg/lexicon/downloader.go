package lexicon

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxLexiconSize caps downloads; real lexicons are a few hundred KB.
const maxLexiconSize = 16 * 1024 * 1024

// EnsureLexicon checks if a lexicon exists at path.
// If not and sourceURL is set, it downloads the lexicon, decompressing gzip
// payloads, validates it and writes it to path.
func EnsureLexicon(ctx context.Context, path, sourceURL string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if sourceURL == "" {
		return fmt.Errorf("lexicon not found at %s and no download url configured", path)
	}
	return downloadLexicon(ctx, sourceURL, path)
}

func downloadLexicon(ctx context.Context, sourceURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "wikireader")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download lexicon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download lexicon: %s", resp.Status)
	}

	var body io.Reader = io.LimitReader(resp.Body, maxLexiconSize)
	if strings.HasSuffix(sourceURL, ".gz") || resp.Header.Get("Content-Type") == "application/gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		body = io.LimitReader(gz, maxLexiconSize)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read lexicon body: %w", err)
	}
	if _, err := Parse(data); err != nil {
		return fmt.Errorf("downloaded lexicon is invalid: %w", err)
	}

	// Write through a temp file so a failed write never leaves a partial lexicon.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".lexicon-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write lexicon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}
