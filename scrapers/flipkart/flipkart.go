package flipkart

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/scrapers/base"
)

type FlipkartScraper struct {
	*base.BaseScraper
}

func NewFlipkartScraper() *FlipkartScraper {
	return &FlipkartScraper{
		BaseScraper: base.NewBaseScraper(),
	}
}

func (s *FlipkartScraper) CanScrape(url string) bool {
	return strings.Contains(url, "flipkart.com")
}

func (s *FlipkartScraper) ScrapeProduct(ctx context.Context, url string) (*models.ProductPage, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return doc.Find("ul._3GnUWp li img, img._396cs4, img.DByuf4").Length() > 0
	})
	if err != nil {
		return nil, err
	}
	return s.ParseProduct(doc, url), nil
}

func (s *FlipkartScraper) ParseProduct(doc *goquery.Document, url string) *models.ProductPage {
	page := &models.ProductPage{URL: url}

	page.Title = strings.TrimSpace(doc.Find(".B_NuCI").Text())
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	// Main image first, thumbnails after
	for _, sel := range []string{"img._396cs4", "img.DByuf4"} {
		if src := doc.Find(sel).First().AttrOr("src", ""); src != "" {
			page.Images = append(page.Images, src)
			break
		}
	}

	doc.Find("ul._3GnUWp li img").Each(func(i int, sel *goquery.Selection) {
		img := sel.AttrOr("src", "")
		// URL format: https://rukminim1.flixcart.com/image/128/128/xif0q/...
		if img != "" {
			page.Images = append(page.Images, strings.Replace(img, "/128/128/", "/832/832/", 1))
		}
	})

	return page
}
