package document

import "clarity-workers/internal/models"

// Reconcile returns the content shown for sectionID: the user's edit when one
// exists, otherwise the freshly generated content.
func Reconcile(sectionID, generated string, overrides map[string]models.UserOverride) (string, bool) {
	if o, ok := overrides[sectionID]; ok {
		return o.EditedText, true
	}
	return generated, false
}
