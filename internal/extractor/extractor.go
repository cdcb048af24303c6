package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"portlens/internal/domain"
)

// Signals is the normalized view of a submission that the scoring engine
// consumes. Textual fields are best-effort: a page with no meta description
// still produces usable signals.
type Signals struct {
	SourceURL    string
	Title        string
	Description  string
	Text         string
	HeadingCount int
	ImageCount   int
	WordCount    int
	Keywords     []string
	Degraded     bool
}

// Extractor fetches a remote resource and derives Signals from it with
// lightweight pattern scanning. No DOM parsing.
type Extractor struct {
	client      *http.Client
	maxBytes    int64
	maxKeywords int
	logger      *zap.Logger
}

func New(fetchTimeout time.Duration, maxBytes int64, logger *zap.Logger) *Extractor {
	return &Extractor{
		client:      &http.Client{Timeout: fetchTimeout},
		maxBytes:    maxBytes,
		maxKeywords: 10,
		logger:      logger,
	}
}

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descRe     = regexp.MustCompile(`(?is)<meta[^>]*name=["']description["'][^>]*content=["'](.*?)["']`)
	descAltRe  = regexp.MustCompile(`(?is)<meta[^>]*content=["'](.*?)["'][^>]*name=["']description["']`)
	headingRe  = regexp.MustCompile(`(?i)<h[1-6][\s>]`)
	imgRe      = regexp.MustCompile(`(?i)<img[\s>]`)
	scriptRe   = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe      = regexp.MustCompile(`(?s)<[^>]*>`)
	entityRe   = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
	wordRe     = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]+`)
	collapseRe = regexp.MustCompile(`\s+`)
)

// ExtractURL fetches the page and derives signals. Transport-level errors,
// timeouts and non-2xx responses are domain.ErrFetchFailed; degraded pages
// (no description, no headings) still return signals.
func (e *Extractor) ExtractURL(ctx context.Context, sourceURL string) (*Signals, error) {
	html, err := e.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return e.FromHTML(sourceURL, html), nil
}

func (e *Extractor) fetch(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}
	return string(body), nil
}

// FromHTML scans raw HTML into Signals. Exposed separately so the preview
// path and tests can bypass the network.
func (e *Extractor) FromHTML(sourceURL, html string) *Signals {
	s := &Signals{SourceURL: sourceURL}

	if m := titleRe.FindStringSubmatch(html); m != nil {
		s.Title = cleanFragment(m[1])
	}
	if m := descRe.FindStringSubmatch(html); m != nil {
		s.Description = cleanFragment(m[1])
	} else if m := descAltRe.FindStringSubmatch(html); m != nil {
		s.Description = cleanFragment(m[1])
	}

	s.HeadingCount = len(headingRe.FindAllString(html, -1))
	s.ImageCount = len(imgRe.FindAllString(html, -1))

	stripped := scriptRe.ReplaceAllString(html, " ")
	stripped = tagRe.ReplaceAllString(stripped, " ")
	stripped = entityRe.ReplaceAllString(stripped, " ")
	s.Text = strings.TrimSpace(collapseRe.ReplaceAllString(stripped, " "))
	s.WordCount = len(wordRe.FindAllString(s.Text, -1))

	if s.Description == "" || s.Title == "" {
		// ParseDegraded: absent fields stay empty and scoring proceeds.
		s.Degraded = true
		e.logger.Debug("degraded extraction",
			zap.String("url", sourceURL),
			zap.Bool("has_title", s.Title != ""),
			zap.Bool("has_description", s.Description != ""))
	}

	s.Keywords = e.keywords(s)
	return s
}

// FromFiles synthesizes signals for uploaded file sets. There is nothing to
// fetch, so the file names and count stand in for structure; this is always
// a degraded-signal path.
func (e *Extractor) FromFiles(title string, paths []string) *Signals {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	s := &Signals{
		Title:      title,
		Text:       strings.Join(names, " "),
		ImageCount: len(paths),
		Degraded:   true,
	}
	s.WordCount = len(wordRe.FindAllString(s.Text, -1))
	s.Keywords = e.keywords(s)
	return s
}

func cleanFragment(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = entityRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(collapseRe.ReplaceAllString(s, " "))
}
