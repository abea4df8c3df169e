package artifact

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultContentType is served for extensions missing from the table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".opus": "audio/opus",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

// ContentType maps a file extension to its MIME type.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return DefaultContentType
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	collapseRuns        = regexp.MustCompile(`[\s_]+`)
)

// ASCIIFilename reduces name to a header-safe ASCII form. Accented letters
// keep their base letter; anything else outside printable ASCII becomes "_".
func ASCIIFilename(name string) string {
	ext := filepath.Ext(name)
	stem := cleanASCII(strings.TrimSuffix(name, ext))
	ext = cleanASCII(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = ""
	}
	if stem == "" {
		stem = "download"
	}
	return stem + strings.ToLower(ext)
}

func cleanASCII(value string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		stripped = value
	}
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if r > unicode.MaxASCII {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	cleaned := unsafeFilenameChars.ReplaceAllString(b.String(), "_")
	cleaned = collapseRuns.ReplaceAllStringFunc(cleaned, func(run string) string {
		if strings.TrimSpace(run) == "" {
			return " "
		}
		return "_"
	})
	return strings.Trim(cleaned, " _")
}

// ContentDisposition builds an attachment header carrying both an ASCII
// fallback and an RFC 5987 UTF-8 filename.
func ContentDisposition(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "download"
	}
	return `attachment; filename="` + ASCIIFilename(name) + `"; filename*=UTF-8''` + encodeExtValue(name)
}

const upperhex = "0123456789ABCDEF"

// encodeExtValue percent-encodes every byte outside the RFC 5987 attr-char set.
func encodeExtValue(value string) string {
	var b strings.Builder
	b.Grow(len(value) * 3)
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
