package translate

import "strings"

// validateResult rejects responses where the model returned an empty or
// whitespace-only translation for either language. A half-filled result
// must not reach the tree.
func validateResult(r *translationResult) error {
	r.HindiTranslation = strings.TrimSpace(r.HindiTranslation)
	r.GujratiTranslation = strings.TrimSpace(r.GujratiTranslation)
	if r.HindiTranslation == "" {
		return &TranslationError{Message: "model returned empty hindi translation"}
	}
	if r.GujratiTranslation == "" {
		return &TranslationError{Message: "model returned empty gujarati translation"}
	}
	return nil
}
