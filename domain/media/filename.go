package media

import "strings"

// OutputExtension is the container every extracted selection is written as
const OutputExtension = ".mp3"

// SanitizeTitle converts a selection title into a filesystem-safe slug:
// lowercase, with every run of non-alphanumeric characters collapsed to a
// single hyphen and no leading or trailing hyphen.
func SanitizeTitle(title string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingHyphen = false
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// OutputFilename derives the final download filename for a selection title.
// The derivation is deterministic so repeated runs produce the same name.
func OutputFilename(title string) string {
	slug := SanitizeTitle(title)
	if slug == "" {
		slug = "selection"
	}
	return slug + OutputExtension
}
