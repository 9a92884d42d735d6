package document

import (
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/models"
)

// Resolution is the template picked for a requested locale.
// NeedsTranslation is set when the template's locale differs from the one
// requested, in which case rendered markup must be machine translated.
type Resolution struct {
	Template         models.TemplateConfig
	RequestedLocale  string
	NeedsTranslation bool
}

// ResolveTemplate tries the exact (id, locale) pair, then (id, "en"), then
// any entry with the id. An unresolvable id is a TEMPLATE_NOT_FOUND error.
func ResolveTemplate(templates []models.TemplateConfig, templateID, locale string) (Resolution, error) {
	if locale == "" {
		locale = models.DefaultLocale
	}

	find := func(match func(models.TemplateConfig) bool) (models.TemplateConfig, bool) {
		for _, t := range templates {
			if t.ID == templateID && match(t) {
				return t, true
			}
		}
		return models.TemplateConfig{}, false
	}

	tpl, ok := find(func(t models.TemplateConfig) bool { return t.EffectiveLocale() == locale })
	if !ok && locale != models.DefaultLocale {
		tpl, ok = find(func(t models.TemplateConfig) bool { return t.EffectiveLocale() == models.DefaultLocale })
	}
	if !ok {
		tpl, ok = find(func(models.TemplateConfig) bool { return true })
	}
	if !ok {
		return Resolution{}, errors.NewTemplateNotFoundError(templateID, locale)
	}

	return Resolution{
		Template:         tpl,
		RequestedLocale:  locale,
		NeedsTranslation: tpl.EffectiveLocale() != locale,
	}, nil
}
