package catalog

import (
	"context"
	"sync"
	"time"

	"clarity-workers/internal/models"
)

// CachedSource memoizes a Source per catalog kind. Errors are never cached.
// Invalidate drops everything; the Watcher calls it when files change.
type CachedSource struct {
	base Source
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// NewCachedSource caches base. A zero ttl keeps entries until Invalidate.
func NewCachedSource(base Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		base:    base,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cacheEntry{},
	}
}

func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.mu.Unlock()
}

func (c *CachedSource) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *CachedSource) put(key string, v interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func cached[T any](c *CachedSource, key string, load func() (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.put(key, v)
	return v, nil
}

func (c *CachedSource) Questions(ctx context.Context) ([]models.Question, error) {
	return cached(c, "questions", func() ([]models.Question, error) { return c.base.Questions(ctx) })
}

func (c *CachedSource) Blueprints(ctx context.Context) ([]models.Blueprint, error) {
	return cached(c, "blueprints", func() ([]models.Blueprint, error) { return c.base.Blueprints(ctx) })
}

func (c *CachedSource) Templates(ctx context.Context) ([]models.TemplateConfig, error) {
	return cached(c, "templates", func() ([]models.TemplateConfig, error) { return c.base.Templates(ctx) })
}

func (c *CachedSource) Outputs(ctx context.Context) ([]models.OutputConfig, error) {
	return cached(c, "outputs", func() ([]models.OutputConfig, error) { return c.base.Outputs(ctx) })
}

func (c *CachedSource) ResearchQuestions(ctx context.Context) ([]models.ResearchQuestion, error) {
	return cached(c, "research", func() ([]models.ResearchQuestion, error) { return c.base.ResearchQuestions(ctx) })
}

func (c *CachedSource) TemplateBody(ctx context.Context, tpl models.TemplateConfig) (string, error) {
	key := "body:" + tpl.ID + ":" + tpl.EffectiveLocale() + ":" + tpl.Path
	return cached(c, key, func() (string, error) { return c.base.TemplateBody(ctx, tpl) })
}
