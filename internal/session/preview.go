package session

import (
	"sync"

	"github.com/google/uuid"
)

type preview struct {
	data     []byte
	mimeType string
}

// PreviewRegistry issues revocable handles for uploaded reference images so a
// UI can display them without holding the raw bytes itself.
type PreviewRegistry struct {
	mu    sync.RWMutex
	items map[string]preview
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{items: make(map[string]preview)}
}

// Register stores data and returns its handle.
func (p *PreviewRegistry) Register(data []byte, mimeType string) string {
	handle := uuid.NewString()
	p.mu.Lock()
	p.items[handle] = preview{data: data, mimeType: mimeType}
	p.mu.Unlock()
	return handle
}

// Lookup returns the bytes behind handle while it is still registered.
func (p *PreviewRegistry) Lookup(handle string) ([]byte, string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	item, ok := p.items[handle]
	if !ok {
		return nil, "", false
	}
	return item.data, item.mimeType, true
}

// Revoke releases handle. Unknown handles are ignored.
func (p *PreviewRegistry) Revoke(handle string) {
	if handle == "" {
		return
	}
	p.mu.Lock()
	delete(p.items, handle)
	p.mu.Unlock()
}

// Len reports the number of live handles.
func (p *PreviewRegistry) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}
