package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/scrapers/amazon"
	"github.com/raushankrgupta/fitly-client/scrapers/flipkart"
	"github.com/raushankrgupta/fitly-client/scrapers/opengraph"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
)

func registered() []Scraper {
	// opengraph accepts any URL and must stay last
	return []Scraper{
		amazon.NewAmazonScraper(),
		flipkart.NewFlipkartScraper(),
		opengraph.NewOpenGraphScraper(),
	}
}

// GetScraper returns the appropriate scraper and the resolved URL
func GetScraper(ctx context.Context, rawURL string) (Scraper, string, error) {
	// Resolve shortened URLs (e.g., amzn.in, bit.ly)
	resolvedURL, err := utils.ResolveShortenedURL(ctx, rawURL)
	if err != nil {
		return nil, rawURL, fmt.Errorf("error resolving url: %v", err)
	}
	return pick(resolvedURL), resolvedURL, nil
}

func pick(pageURL string) Scraper {
	for _, s := range registered() {
		if s.CanScrape(pageURL) {
			return s
		}
	}
	return opengraph.NewOpenGraphScraper()
}

// ResolveGarmentPage finds the garment images for a product page. html is the
// page body when the caller already downloaded it; nil means fetch it here.
func ResolveGarmentPage(ctx context.Context, pageURL string, html []byte) (*models.ProductPage, error) {
	scraper := pick(pageURL)

	if html != nil {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("failed to parse product page: %w", err)
		}
		page := scraper.ParseProduct(doc, pageURL)
		if len(page.Images) > 0 {
			page.Images = absolutize(pageURL, page.Images)
			return page, nil
		}
		log.Debug().Str("url", pageURL).Msg("No images in fetched page, refetching through scraper")
	}

	page, err := scraper.ScrapeProduct(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(page.Images) == 0 {
		return nil, fmt.Errorf("no garment image found on %s", pageURL)
	}
	page.Images = absolutize(pageURL, page.Images)
	return page, nil
}

// absolutize resolves relative and protocol-relative image references against the page URL
func absolutize(pageURL string, images []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return images
	}
	seen := make(map[string]bool)
	var out []string
	for _, img := range images {
		ref, err := url.Parse(img)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}
