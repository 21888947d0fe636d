package base

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-client/config"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
)

// BaseScraper handles common scraping logic
type BaseScraper struct {
	Client *http.Client
	// Render enables the headless Chrome fallback for pages that build their markup in JavaScript
	Render bool
}

// NewBaseScraper creates a new BaseScraper instance
func NewBaseScraper() *BaseScraper {
	return &BaseScraper{
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &utils.LatencyTransport{Base: &http.Transport{
				ForceAttemptHTTP2:     false,
				TLSNextProto:          make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			}},
		},
		Render: config.RenderPages,
	}
}

// FetchDocument fetches the URL over plain HTTP and, when the validator rejects
// the result and rendering is enabled, again through headless Chrome.
func (b *BaseScraper) FetchDocument(ctx context.Context, url string, validator func(*goquery.Document) bool) (*goquery.Document, error) {
	doc, err := b.FetchDocumentHTTP(ctx, url)
	if err == nil {
		if validator(doc) {
			log.Debug().Str("url", url).Msg("[BaseScraper] HTTP Success")
			return doc, nil
		}
		log.Debug().Str("url", url).Msg("[BaseScraper] HTTP yielded invalid content")
	} else {
		log.Debug().Err(err).Str("url", url).Msg("[BaseScraper] HTTP Failed")
	}

	if !b.Render {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("page at %s has no usable content (set RENDER_PAGES=true to render it)", url)
	}

	log.Debug().Str("url", url).Msg("[BaseScraper] Trying ChromeDP")
	doc, err = b.FetchDocumentChromeDP(ctx, url)
	if err != nil {
		return nil, err
	}
	if !validator(doc) {
		return nil, fmt.Errorf("rendered page at %s has no usable content", url)
	}
	return doc, nil
}

// IsValidDocument rejects bot-check pages and near-empty bodies
func IsValidDocument(doc *goquery.Document) bool {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").Text()))
	if strings.Contains(title, "robot check") ||
		strings.Contains(title, "captcha") ||
		strings.Contains(title, "access denied") {
		return false
	}
	return doc.Find("img, meta[property='og:image']").Length() > 0
}

// FetchDocumentHTTP fetches the URL and returns a GoQuery document via standard HTTP
func (b *BaseScraper) FetchDocumentHTTP(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Common headers to mimic a real browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	res, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}

	return goquery.NewDocumentFromReader(res.Body)
}
