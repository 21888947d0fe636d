package intake

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const previewScheme = "preview://"

type preview struct {
	data     []byte
	mimeType string
}

// Previews hands out revocable local handles to image bytes. A handle stays
// valid until it is released.
type Previews struct {
	mu      sync.RWMutex
	entries map[string]preview
}

func NewPreviews() *Previews {
	return &Previews{entries: make(map[string]preview)}
}

// Create registers data and returns its locator
func (p *Previews) Create(data []byte, mimeType string) string {
	locator := previewScheme + uuid.NewString()
	p.mu.Lock()
	p.entries[locator] = preview{data: data, mimeType: mimeType}
	p.mu.Unlock()
	return locator
}

// Open returns the bytes behind a live locator
func (p *Previews) Open(locator string) ([]byte, string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[locator]
	return e.data, e.mimeType, ok
}

// Release invalidates locator. It reports whether the locator was live.
func (p *Previews) Release(locator string) bool {
	if !strings.HasPrefix(locator, previewScheme) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[locator]; !ok {
		return false
	}
	delete(p.entries, locator)
	return true
}

// Len is the number of live locators
func (p *Previews) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
