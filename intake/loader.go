// Package intake turns user-chosen image sources into validated, encodable
// ImageAssets with local preview handles.
package intake

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/scrapers"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
)

var (
	ErrImageTooLarge    = errors.New("image exceeds the size limit")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// PageResolver finds garment images on a product page
type PageResolver func(ctx context.Context, pageURL string, html []byte) (*models.ProductPage, error)

// Loader reads image sources: local paths, http(s) URLs (images or product
// pages), s3:// objects and base64 data URIs.
type Loader struct {
	HTTPClient  *http.Client
	MaxBytes    int64
	Previews    *Previews
	ResolvePage PageResolver
}

// NewLoader creates a Loader with the default page resolver
func NewLoader(maxBytes int64, previews *Previews) *Loader {
	if previews == nil {
		previews = NewPreviews()
	}
	return &Loader{
		HTTPClient:  utils.DefaultHTTPClient,
		MaxBytes:    maxBytes,
		Previews:    previews,
		ResolvePage: scrapers.ResolveGarmentPage,
	}
}

// Load reads source into a new asset for slot. The preview handle is created
// before Load returns; the base64 form is computed on first Encode.
func (l *Loader) Load(ctx context.Context, slot models.Slot, source string) (*models.ImageAsset, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	label := describeSource(source)

	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrImageTooLarge, label, len(data), l.MaxBytes)
	}
	info, err := utils.SniffImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, label, err)
	}

	asset := &models.ImageAsset{
		ID:       uuid.NewString(),
		Slot:     slot,
		Source:   label,
		MIMEType: info.MIMEType,
		Format:   info.Format,
		Width:    info.Width,
		Height:   info.Height,
		Size:     int64(len(data)),
		Data:     data,
	}
	asset.PreviewURL = l.Previews.Create(data, info.MIMEType)

	log.Debug().
		Str("slot", string(slot)).
		Str("source", label).
		Str("format", info.Format).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("Image selected")
	return asset, nil
}

// Release drops the asset's preview handle
func (l *Loader) Release(asset *models.ImageAsset) {
	if asset != nil {
		l.Previews.Release(asset.PreviewURL)
	}
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	switch {
	case utils.IsDataURI(source):
		data, _, err := utils.DecodeDataURI(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read data uri: %w", err)
		}
		return data, nil

	case strings.HasPrefix(source, "s3://"):
		bucket, key, err := utils.ParseS3URI(source)
		if err != nil {
			return nil, err
		}
		dl, err := utils.DownloadFromS3(ctx, bucket, key, l.MaxBytes)
		if err != nil {
			return nil, l.downloadErr(source, err)
		}
		return dl.Data, nil

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.readURL(ctx, source)

	default:
		return l.readFile(source)
	}
}

func (l *Loader) readURL(ctx context.Context, source string) ([]byte, error) {
	dl, err := utils.FetchURL(ctx, l.HTTPClient, source, l.MaxBytes)
	if err != nil {
		return nil, l.downloadErr(source, err)
	}
	if !isHTML(dl.ContentType) {
		return dl.Data, nil
	}

	// A shop page rather than an image: find the garment picture on it
	page, err := l.ResolvePage(ctx, dl.FinalURL, dl.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to find an image on %s: %w", source, err)
	}

	var lastErr error
	for _, img := range page.Images {
		imgDL, err := utils.FetchURL(ctx, l.HTTPClient, img, l.MaxBytes)
		if err != nil {
			lastErr = l.downloadErr(img, err)
			continue
		}
		if isHTML(imgDL.ContentType) {
			lastErr = fmt.Errorf("%w: %s is a web page", ErrUnsupportedImage, img)
			continue
		}
		log.Info().Str("page", source).Str("image", img).Msg("Resolved garment image from product page")
		return imgDL.Data, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no garment image found on %s", source)
	}
	return nil, lastErr
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read %s: is a directory", path)
	}
	if l.MaxBytes > 0 && info.Size() > l.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrImageTooLarge, path, info.Size(), l.MaxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (l *Loader) downloadErr(source string, err error) error {
	if errors.Is(err, utils.ErrBodyTooLarge) {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrImageTooLarge, source, l.MaxBytes)
	}
	return fmt.Errorf("failed to download %s: %w", source, err)
}

// describeSource keeps inline data URIs out of state and messages
func describeSource(source string) string {
	if utils.IsDataURI(source) {
		return "inline data URI"
	}
	return source
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
