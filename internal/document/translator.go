package document

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/database"
	"clarity-workers/internal/common/errors"
	commonhttp "clarity-workers/internal/common/http"
	"clarity-workers/internal/common/logger"
)

// Translator translates one run of plain text into locale.
type Translator interface {
	Translate(ctx context.Context, text, locale string) (string, error)
}

// StubTranslator tags text with the target locale instead of translating it.
type StubTranslator struct{}

func (StubTranslator) Translate(_ context.Context, text, locale string) (string, error) {
	switch locale {
	case "es":
		return "[ES] " + text, nil
	case "fr":
		return "[FR] " + text, nil
	case "de":
		return "[DE] " + text, nil
	}
	return "[" + strings.ToUpper(locale) + "] " + text, nil
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
}

type translateResponse struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// HTTPTranslator calls the translation endpoint of the analysis server.
type HTTPTranslator struct {
	url  string
	http *commonhttp.Client
}

func NewHTTPTranslator(cfg config.TranslationConfig, log logger.Logger) *HTTPTranslator {
	return &HTTPTranslator{
		url: strings.TrimRight(cfg.BaseURL, "/") + "/api/translate",
		http: commonhttp.NewClient(time.Duration(cfg.Timeout)*time.Millisecond,
			commonhttp.BreakerSettingsFromConfig("translation-service", cfg.Breaker), log),
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, locale string) (string, error) {
	var resp translateResponse
	err := t.http.PostJSON(ctx, t.url, translateRequest{
		Text:           text,
		TargetLanguage: locale,
		SourceLanguage: "en",
	}, &resp)
	if err != nil {
		return "", errors.NewTranslationFailedError(locale, err)
	}
	if !resp.Success {
		return "", errors.NewTranslationFailedError(locale, fmt.Errorf("translation service: %s", resp.Error))
	}
	return resp.TranslatedText, nil
}

// NewTranslator picks the translator named by cfg.Provider.
func NewTranslator(cfg config.TranslationConfig, log logger.Logger) Translator {
	if cfg.Provider == "http" {
		return NewHTTPTranslator(cfg, log)
	}
	return StubTranslator{}
}

// Cache stores translated text runs keyed by locale and normalized source.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]string{}}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MemoryCache) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares translations between worker processes. Redis errors are
// logged and treated as misses.
type RedisCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

func NewRedisCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{
		redis:  redis,
		ttl:    ttl,
		prefix: "pcw_translation:",
		log:    log.WithFields(map[string]interface{}{"component": "translation-cache"}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.redis.Get(ctx, c.prefix+key)
	if err != nil {
		if !database.IsNil(err) {
			c.log.Warn("Translation cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.redis.Set(ctx, c.prefix+key, value, c.ttl); err != nil {
		c.log.Warn("Translation cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
