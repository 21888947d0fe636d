package amazon

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/scrapers/base"
)

// thumbnail size markers such as ._AC_US40_. sit between the image id and the extension
var sizeMarker = regexp.MustCompile(`\._[^/]+_\.`)

// AmazonScraper handles the HTML parsing for Amazon
type AmazonScraper struct {
	*base.BaseScraper
}

func NewAmazonScraper() *AmazonScraper {
	return &AmazonScraper{
		BaseScraper: base.NewBaseScraper(),
	}
}

func (s *AmazonScraper) CanScrape(url string) bool {
	return strings.Contains(url, "amazon.") || strings.Contains(url, "amzn.")
}

func (s *AmazonScraper) ScrapeProduct(ctx context.Context, url string) (*models.ProductPage, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return doc.Find("#landingImage, #imgBlkFront, #altImages").Length() > 0
	})
	if err != nil {
		return nil, err
	}
	return s.ParseProduct(doc, url), nil
}

func (s *AmazonScraper) ParseProduct(doc *goquery.Document, url string) *models.ProductPage {
	page := &models.ProductPage{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("#productTitle").Text()),
	}

	// The landing image is the garment on its own; alt views follow it
	if hires := doc.Find("#landingImage").AttrOr("data-old-hires", ""); hires != "" {
		page.Images = append(page.Images, hires)
	} else if largest := largestDynamicImage(doc); largest != "" {
		page.Images = append(page.Images, largest)
	} else if src := doc.Find("#landingImage").AttrOr("src", ""); src != "" {
		page.Images = append(page.Images, src)
	}

	doc.Find("#altImages ul li.item img").Each(func(i int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if src != "" && !strings.Contains(src, "play-button") {
			page.Images = append(page.Images, toHighRes(src))
		}
	})

	return page
}

// largestDynamicImage picks the biggest rendition from data-a-dynamic-image,
// a JSON object of url -> [width, height].
func largestDynamicImage(doc *goquery.Document) string {
	imageJSON := doc.Find("#landingImage").AttrOr("data-a-dynamic-image", "")
	if imageJSON == "" {
		imageJSON = doc.Find("#imgBlkFront").AttrOr("data-a-dynamic-image", "")
	}
	if imageJSON == "" {
		return ""
	}

	var renditions map[string][]int
	if err := json.Unmarshal([]byte(imageJSON), &renditions); err != nil {
		return ""
	}

	best, bestArea := "", -1
	for u, dims := range renditions {
		area := 0
		if len(dims) == 2 {
			area = dims[0] * dims[1]
		}
		// ties broken by url so the choice is stable
		if area > bestArea || (area == bestArea && u < best) {
			best, bestArea = u, area
		}
	}
	return best
}

func toHighRes(url string) string {
	return sizeMarker.ReplaceAllString(url, ".")
}
