package media

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ObjectKey builds "<prefix>/<kind folder>/<uuid><ext>". The original file
// name only contributes its extension.
func ObjectKey(prefix string, kind Kind, fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	name := uuid.New().String() + ext
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return path.Join(kind.Folder(), name)
	}
	return path.Join(prefix, kind.Folder(), name)
}
