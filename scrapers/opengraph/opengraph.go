package opengraph

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/scrapers/base"
)

// OpenGraphScraper reads the share-card metadata most shops publish.
// It accepts any URL and serves as the fallback.
type OpenGraphScraper struct {
	*base.BaseScraper
}

func NewOpenGraphScraper() *OpenGraphScraper {
	return &OpenGraphScraper{
		BaseScraper: base.NewBaseScraper(),
	}
}

func (s *OpenGraphScraper) CanScrape(url string) bool {
	return true
}

func (s *OpenGraphScraper) ScrapeProduct(ctx context.Context, url string) (*models.ProductPage, error) {
	doc, err := s.FetchDocument(ctx, url, base.IsValidDocument)
	if err != nil {
		return nil, err
	}
	return s.ParseProduct(doc, url), nil
}

func (s *OpenGraphScraper) ParseProduct(doc *goquery.Document, url string) *models.ProductPage {
	page := &models.ProductPage{URL: url}

	page.Title = metaContent(doc, "meta[property='og:title']")
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	selectors := []string{
		"meta[property='og:image:secure_url']",
		"meta[property='og:image']",
		"meta[name='twitter:image']",
		"meta[itemprop='image']",
	}
	for _, sel := range selectors {
		doc.Find(sel).Each(func(i int, m *goquery.Selection) {
			if c := strings.TrimSpace(m.AttrOr("content", "")); c != "" {
				page.Images = append(page.Images, c)
			}
		})
	}
	if href := doc.Find("link[rel='image_src']").AttrOr("href", ""); href != "" {
		page.Images = append(page.Images, href)
	}

	return page
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}
