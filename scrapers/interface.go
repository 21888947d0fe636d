package scrapers

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-client/models"
)

// Scraper finds garment images on a shop's product page
type Scraper interface {
	// CanScrape checks if the scraper can handle the given URL
	CanScrape(url string) bool
	// ScrapeProduct fetches the page and extracts its garment images
	ScrapeProduct(ctx context.Context, url string) (*models.ProductPage, error)
	// ParseProduct extracts garment images from an already fetched page
	ParseProduct(doc *goquery.Document, url string) *models.ProductPage
}
