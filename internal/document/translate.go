package document

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/models"
)

const maxConcurrentTranslations = 8

// Adapter translates only the text runs of rendered markup. Tags and
// placeholders pass through byte for byte, as does the whitespace around
// each text run.
type Adapter struct {
	translator Translator
	cache      Cache
	log        logger.Logger
}

func NewAdapter(translator Translator, cache Cache, log logger.Logger) *Adapter {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Adapter{
		translator: translator,
		cache:      cache,
		log:        log.WithFields(map[string]interface{}{"component": "translation"}),
	}
}

// TranslateMarkup returns markup with its text runs translated into locale.
// A run that fails to translate is kept in the source language and is not
// cached.
func (a *Adapter) TranslateMarkup(ctx context.Context, markup, locale string) string {
	if locale == "" || locale == models.DefaultLocale {
		return markup
	}

	tokens := Lex(markup)
	out := make([]string, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTranslations)
	for i, tok := range tokens {
		out[i] = tok.Text
		if tok.Kind != TokenText || strings.TrimSpace(tok.Text) == "" {
			continue
		}
		g.Go(func() error {
			out[i] = a.translateRun(gctx, tok.Text, locale)
			return nil
		})
	}
	_ = g.Wait()

	return strings.Join(out, "")
}

func (a *Adapter) translateRun(ctx context.Context, run, locale string) string {
	leading := run[:len(run)-len(strings.TrimLeftFunc(run, unicode.IsSpace))]
	trailing := run[len(strings.TrimRightFunc(run, unicode.IsSpace)):]
	text := strings.TrimSpace(run)

	key := cacheKey(locale, text)
	if cached, ok := a.cache.Get(ctx, key); ok {
		metrics.TranslationCacheLookups.WithLabelValues("hit").Inc()
		return leading + cached + trailing
	}
	metrics.TranslationCacheLookups.WithLabelValues("miss").Inc()

	translated, err := a.translator.Translate(ctx, text, locale)
	if err != nil {
		a.log.Warn("Translation failed, keeping source text", map[string]interface{}{
			"locale": locale,
			"error":  err.Error(),
		})
		return run
	}

	a.cache.Set(ctx, key, translated)
	return leading + translated + trailing
}

// cacheKey collapses internal whitespace so reflowed markup shares entries.
func cacheKey(locale, text string) string {
	return locale + ":" + strings.Join(strings.Fields(text), " ")
}
