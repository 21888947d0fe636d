package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrBodyTooLarge is returned when a download exceeds the caller's byte limit
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Download is a fetched remote body
type Download struct {
	Data        []byte
	ContentType string
	FinalURL    string // after redirects
}

// DefaultHTTPClient is used for image and page downloads
var DefaultHTTPClient = &http.Client{
	Timeout:   30 * time.Second,
	Transport: &LatencyTransport{},
}

// FetchURL downloads url, reading at most maxBytes of body (0 means no limit).
func FetchURL(ctx context.Context, client *http.Client, url string, maxBytes int64) (*Download, error) {
	if client == nil {
		client = DefaultHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,text/html;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrBodyTooLarge
	}

	return &Download{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// SaveResultImage writes a try-on result to path. The result may be bare
// base64, a base64 data URI or a URL served by the backend. If path has no
// extension one is derived from the image type. The written path is returned.
func SaveResultImage(ctx context.Context, client *http.Client, resultImage, path string) (string, error) {
	var (
		data     []byte
		mimeType string
		err      error
	)

	if !strings.HasPrefix(resultImage, "http://") && !strings.HasPrefix(resultImage, "https://") {
		// bare base64 from the backend
		resultImage = ToDataURI("", resultImage)
	}
	if IsDataURI(resultImage) {
		data, mimeType, err = DecodeDataURI(resultImage)
		if err != nil {
			return "", err
		}
	} else {
		dl, err := FetchURL(ctx, client, resultImage, 0)
		if err != nil {
			return "", fmt.Errorf("failed to download result image: %w", err)
		}
		data, mimeType = dl.Data, dl.ContentType
	}

	if filepath.Ext(path) == "" {
		path += GetExtFromMimeType(mimeType)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create directory failed: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
