package delivery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultFilenamePrefix = "resume"
	maxFilenameLength     = 200
	filenameSeparators    = "_-."
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	repeatedUnderscores = regexp.MustCompile(`_{2,}`)
	repeatedHyphens     = regexp.MustCompile(`-{2,}`)
	repeatedDots        = regexp.MustCompile(`\.{2,}`)
)

// SanitizeFilename reduces name to [a-zA-Z0-9._-], transliterating accented
// letters, collapsing runs of separators and trimming separators from both
// ends. An empty result becomes resume_<unix-millis>.pdf.
//
// Sanitizing an already sanitized name returns it unchanged.
func SanitizeFilename(name string, now time.Time) string {
	s := stripMarks(name)
	s = unsafeFilenameChars.ReplaceAllString(s, "_")
	s = repeatedUnderscores.ReplaceAllString(s, "_")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	s = repeatedDots.ReplaceAllString(s, ".")
	s = strings.Trim(s, filenameSeparators)

	if len(s) > maxFilenameLength {
		ext := filepath.Ext(s)
		if len(ext) > 16 {
			ext = ""
		}
		stem := strings.TrimRight(s[:maxFilenameLength-len(ext)], filenameSeparators)
		if stem == "" {
			s = ""
		} else {
			s = stem + ext
		}
	}

	if s == "" {
		return fmt.Sprintf("%s_%d.pdf", defaultFilenamePrefix, now.UnixMilli())
	}
	return s
}

// stripMarks decomposes name and drops combining marks, so "Résumé" becomes
// "Resume" instead of "R_sum_".
func stripMarks(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return out
}

// VersionedFilename builds Name_Title_vN_YYYY-MM-DD.pdf for a download.
// version is the 1-based download number; empty parts are skipped.
func VersionedFilename(candidate, title string, version int64, date time.Time) string {
	var parts []string
	if candidate = strings.TrimSpace(candidate); candidate != "" {
		parts = append(parts, candidate)
	}
	if title = strings.TrimSpace(title); title == "" {
		title = defaultFilenamePrefix
	}
	parts = append(parts, title, fmt.Sprintf("v%d", version), date.Format("2006-01-02"))
	return SanitizeFilename(strings.Join(parts, "_")+".pdf", date)
}

// AttachmentFilename builds Name_Title.pdf for an emailed artifact.
func AttachmentFilename(candidate, title string, now time.Time) string {
	if candidate = strings.TrimSpace(candidate); candidate == "" {
		candidate = "Resume"
	}
	if title = strings.TrimSpace(title); title == "" {
		title = defaultFilenamePrefix
	}
	return SanitizeFilename(candidate+"_"+title+".pdf", now)
}
