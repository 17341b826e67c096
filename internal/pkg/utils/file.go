package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a"
}

// SupportInvoiceType checks if invoice mime type is supported
func SupportInvoiceType(mime string) bool {
	return mime == "application/pdf" || strings.HasPrefix(mime, "image/")
}

// MakeFileName joins id dir and file name
func MakeFileName(id, name string) string {
	return filepath.Join(id, name)
}

// MakeValidateFileName validates file name and prepends id dir.
// Path separators inside the name are rejected
func MakeValidateFileName(id, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	return MakeFileName(id, name), nil
}
