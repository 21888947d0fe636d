package models

import (
	"encoding/base64"
	"strings"
)

// Slot identifies which of the two try-on inputs an image fills
type Slot string

const (
	SlotPerson  Slot = "person"
	SlotGarment Slot = "garment"
)

// ParseSlot maps a user-supplied name to a Slot
func ParseSlot(s string) (Slot, bool) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotPerson:
		return SlotPerson, true
	case SlotGarment:
		return SlotGarment, true
	}
	return "", false
}

// ImageAsset is a user-chosen image held in memory for one slot
type ImageAsset struct {
	ID         string `json:"id"`
	Slot       Slot   `json:"slot"`
	Source     string `json:"source"`
	MIMEType   string `json:"mime_type"`
	Format     string `json:"format"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Size       int64  `json:"size"`
	PreviewURL string `json:"preview_url"`

	Data    []byte `json:"-"`
	encoded string
}

// Encode returns the standard base64 form of the image, without a data-URI
// prefix. The result is cached; callers must not encode one asset from two
// goroutines at once.
func (a *ImageAsset) Encode() string {
	if a.encoded == "" && len(a.Data) > 0 {
		a.encoded = base64.StdEncoding.EncodeToString(a.Data)
	}
	return a.encoded
}
