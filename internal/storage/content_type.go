package storage

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ContentTypePDF is the MIME type of rendered artifacts.
const ContentTypePDF = "application/pdf"

// DetectContentType determines the MIME type of an object.
//
// Detection priority:
// 1. providedType, if non-empty
// 2. the extension of name
// 3. sniffing the first 512 bytes of data
// 4. "application/octet-stream"
func DetectContentType(providedType, name string, data []byte) string {
	if providedType != "" {
		return providedType
	}

	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}

	if len(data) > 0 {
		if len(data) > 512 {
			data = data[:512]
		}
		return http.DetectContentType(data)
	}

	return "application/octet-stream"
}

// IsPDF returns true if the content type is a PDF document.
func IsPDF(contentType string) bool {
	baseType := strings.Split(contentType, ";")[0]
	baseType = strings.TrimSpace(strings.ToLower(baseType))
	return baseType == ContentTypePDF
}

// LooksLikePDF reports whether data starts with the PDF magic bytes.
func LooksLikePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// contentDisposition builds an attachment Content-Disposition header value.
func contentDisposition(filename string) string {
	if filename == "" {
		return ""
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
