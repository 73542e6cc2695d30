package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is what an image is attached to.
type Kind string

const (
	KindProduct  Kind = "product"
	KindCategory Kind = "category"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindProduct || k == KindCategory
}

func (k Kind) prefix() string {
	if k == KindCategory {
		return "cat"
	}
	return "prod"
}

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/webp": ".webp",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/avif": ".avif",
}

// ImageExtension returns the file extension for an accepted image content type.
func ImageExtension(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExtensions[ct]
	return ext, ok
}

// ObjectName builds "<cat|prod>-<unix ms>-<slug><ext>" from the uploaded file name.
func ObjectName(kind Kind, filename, ext string, now time.Time) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	slug := Slugify(base)
	if slug == "" {
		slug = "image"
	}
	return fmt.Sprintf("%s-%d-%s%s", kind.prefix(), now.UnixMilli(), slug, ext)
}

// Slugify lower-cases s, strips accents, and joins alphanumeric runs with "-".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
