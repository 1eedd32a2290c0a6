// Package classify maps a file to the attachment category used to send it.
package classify

import (
	"dropwatch/internal/model"
	"path/filepath"
	"strings"
)

var categories = map[string]model.Category{
	"png":  model.CategoryPhoto,
	"jpg":  model.CategoryPhoto,
	"jpeg": model.CategoryPhoto,
	"mp4":  model.CategoryVideo,
	"gif":  model.CategoryVideo,
	"mkv":  model.CategoryVideo,
}

// Classify looks at the extension only, case-sensitively. Anything not in
// the table, including a missing extension, is a document.
func Classify(path string) model.Category {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if c, ok := categories[ext]; ok {
		return c
	}

	return model.CategoryDocument
}
