package render

import (
	"time"

	"skullboard/cache"
	"skullboard/models"

	"github.com/google/uuid"
)

// PayloadTTL bounds how long a stored document can be fetched by the render page.
const PayloadTTL = 60 * time.Second

// PayloadStore hands out unguessable ids for documents awaiting a screenshot.
type PayloadStore struct {
	entries *cache.TTL[string, *models.RenderDocument]
}

func NewPayloadStore(opts ...cache.Option) *PayloadStore {
	return &PayloadStore{entries: cache.New[string, *models.RenderDocument](PayloadTTL, opts...)}
}

// Put stores doc and returns its id.
func (s *PayloadStore) Put(doc *models.RenderDocument) string {
	id := uuid.NewString()
	s.entries.Set(id, doc)
	return id
}

// Get returns the document for id while it is live.
func (s *PayloadStore) Get(id string) (*models.RenderDocument, bool) {
	return s.entries.Get(id)
}

func (s *PayloadStore) Sweep() int { return s.entries.Sweep() }

func (s *PayloadStore) Len() int { return s.entries.Len() }
