package service

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// BlobPrefix marks image references minted by BlobStore.
const BlobPrefix = "blob:"

// Blob is an uploaded image kept in memory.
type Blob struct {
	ContentType string
	Data        []byte
}

// BlobStore hands out short-lived references to uploaded images. References
// only live as long as the process: after a restart, stored records keep
// their image_url but the bytes are gone.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string]Blob),
	}
}

// Put stores the image and returns its reference.
func (b *BlobStore) Put(contentType string, data []byte) string {
	ref := BlobPrefix + uuid.New().String()

	b.mu.Lock()
	b.blobs[ref] = Blob{ContentType: contentType, Data: data}
	b.mu.Unlock()

	return ref
}

func (b *BlobStore) Get(ref string) (Blob, bool) {
	if !strings.HasPrefix(ref, BlobPrefix) {
		ref = BlobPrefix + ref
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	blob, ok := b.blobs[ref]
	return blob, ok
}

func (b *BlobStore) Delete(ref string) {
	b.mu.Lock()
	delete(b.blobs, ref)
	b.mu.Unlock()
}

// Len reports the number of images held.
func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.blobs)
}
