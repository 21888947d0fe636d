// Command garment_probe prints the garment images found on product pages,
// one JSON document per URL. It is a quick way to check that a store's pages
// still resolve before pointing the try-on client at them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raushankrgupta/fitly-client/config"
	"github.com/raushankrgupta/fitly-client/scrapers"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
)

func main() {
	timeout := flag.Duration("timeout", 45*time.Second, "Per-URL timeout")
	flag.Parse()

	config.LoadConfig()
	utils.InitLogger(config.LogLevel)

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: garment_probe [-timeout 45s] <product-url>...")
		os.Exit(2)
	}

	failed := 0
	for _, u := range urls {
		if err := probe(u, *timeout); err != nil {
			log.Error().Err(err).Str("url", u).Msg("Probe failed")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func probe(rawURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	scraper, resolved, err := scrapers.GetScraper(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to get scraper: %w", err)
	}
	log.Info().Str("resolved", resolved).Str("scraper", fmt.Sprintf("%T", scraper)).Msg("Probing")

	page, err := scraper.ScrapeProduct(ctx, resolved)
	if err != nil {
		return fmt.Errorf("failed to scrape product: %w", err)
	}

	b, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
