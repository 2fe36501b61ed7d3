// utils/names.go
package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SpeciesDisplayName normalises classifier output ("black  WIDOW" → "Black Widow")
func SpeciesDisplayName(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "Unknown Spider"
	}
	// Casers are stateful, so one per call
	return cases.Title(language.English).String(strings.Join(fields, " "))
}

// NicknameSlug returns a URL-safe slug for a spider nickname
func NicknameSlug(nickname string) string {
	s := slug.Make(nickname)
	if s == "" {
		return "spider"
	}
	return s
}

// SpiderImageKey builds the object key for an uploaded spider photo,
// e.g. "spiders/sir-fangs-a-lot-<uuid>.jpg"
func SpiderImageKey(nickname, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic":
	default:
		ext = ".jpg"
	}
	return "spiders/" + NicknameSlug(nickname) + "-" + uuid.NewString() + ext
}
