package verse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// nextDataMarker identifies the embedded page-data script on the source
// site. The site ships the verse of the day inside this JSON blob.
const nextDataMarker = "__NEXT_DATA__"

// pageData mirrors the slice of the embedded JSON we care about.
type pageData struct {
	Props struct {
		PageProps struct {
			VerseOfTheDay struct {
				Content   string `json:"content"`
				Reference struct {
					Human string `json:"human"`
				} `json:"reference"`
			} `json:"verseOfTheDay"`
		} `json:"pageProps"`
	} `json:"props"`
}

// Scraper is the fast path: a plain HTTP fetch of the source page.
// Every failure here is expected and means "try the next source" — the
// site's markup is a soft dependency.
type Scraper struct {
	url       string
	userAgent string
	client    *http.Client
	log       *zap.Logger
}

// NewScraper creates a scraper with a short timeout so an unreachable
// source fails over quickly instead of stalling the pipeline.
func NewScraper(url, userAgent string, timeout time.Duration, log *zap.Logger) *Scraper {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{
		url:       url,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

// FetchVerse fetches the page HTML and digs the verse of the day out of
// the embedded script JSON.
func (s *Scraper) FetchVerse(ctx context.Context) (*Verse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	payload := findPageData(doc)
	if payload == "" {
		return nil, fmt.Errorf("page data script not found")
	}

	var data pageData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("parse page data: %w", err)
	}

	v := &Verse{
		Text:      strings.TrimSpace(data.Props.PageProps.VerseOfTheDay.Content),
		Reference: strings.TrimSpace(data.Props.PageProps.VerseOfTheDay.Reference.Human),
	}
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("verse of the day not in page data: %w", err)
	}

	s.log.Debug("scraped verse", zap.String("reference", v.Reference))
	return v, nil
}

// findPageData walks the parsed HTML for the page-data script payload.
func findPageData(doc *html.Node) string {
	var payload string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if payload != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" {
			if scriptID(n) == nextDataMarker && n.FirstChild != nil {
				payload = n.FirstChild.Data
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return payload
}

func scriptID(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "id" {
			return attr.Val
		}
	}
	return ""
}
