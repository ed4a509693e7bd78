// Package memory holds long-term memory: a persistent vector store of
// extracted facts plus the soul file the assistant narrates itself with.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"seraph/internal/logging"
)

const collectionName = "memories"

// Entry is one remembered fact with its retrieval similarity.
type Entry struct {
	ID         string
	Content    string
	Category   string
	Similarity float32
}

// Store is the chromem-backed semantic memory.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     logging.Logger
}

// StoreConfig selects persistence location and the embedding provider.
type StoreConfig struct {
	PersistPath string // directory; empty means in-memory
	BaseURL     string
	APIKey      string
	EmbedModel  string
}

// NewStore opens (or creates) the persistent memory collection. Embeddings go
// through the same OpenAI-compatible endpoint as completions.
func NewStore(cfg StoreConfig, logger logging.Logger) (*Store, error) {
	logger = logging.OrNop(logger)

	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(cfg.PersistPath, "memory.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	var embed chromem.EmbeddingFunc
	if cfg.BaseURL != "" {
		embed = chromem.NewEmbeddingFuncOpenAICompat(
			strings.TrimRight(cfg.BaseURL, "/"), cfg.APIKey, cfg.EmbedModel, nil)
	} else {
		embed = chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(cfg.EmbedModel))
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open memory collection: %w", err)
	}

	return &Store{db: db, collection: collection, logger: logger}, nil
}

// Remember stores one fact under a category.
func (s *Store) Remember(ctx context.Context, content, category string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:      uuid.NewString(),
		Content: content,
		Metadata: map[string]string{
			"category":   category,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	s.logger.Debug("stored %s memory (%d chars)", category, len(content))
	return nil
}

// Search returns up to k memories most similar to query.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Entry, error) {
	if k <= 0 {
		k = 5
	}
	if n := s.collection.Count(); n < k {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}

	out := make([]Entry, 0, len(results))
	for _, r := range results {
		out = append(out, Entry{
			ID:         r.ID,
			Content:    r.Content,
			Category:   r.Metadata["category"],
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// SearchFormatted renders search results as a bulleted prompt block, or ""
// when nothing relevant is stored.
func (s *Store) SearchFormatted(ctx context.Context, query string, k int) string {
	entries, err := s.Search(ctx, query, k)
	if err != nil {
		s.logger.Warn("memory search failed: %v", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant memories:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n- [%s] %s", e.Category, e.Content)
	}
	return b.String()
}

// Count returns the number of stored memories.
func (s *Store) Count() int { return s.collection.Count() }
