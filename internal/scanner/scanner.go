// scanner is used to find Markdown files below a set of paths.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("prosemd.scanner")

// MarkdownExtensions are the file extensions Scan picks up inside directories.
var MarkdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
}

// IsMarkdown reports whether path has a Markdown extension.
func IsMarkdown(path string) bool {
	return MarkdownExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan walks every root in order. Any directory whose name begins with "."
// is skipped entirely. Files below a directory are returned when match
// accepts them; a root that is itself a file is always returned.
func Scan(roots []string, match func(path string) bool) ([]string, error) {
	var paths []string
	for _, root := range roots {
		log.Debugf("starting WalkDir at %q", root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					log.Debugf("skipping %q", path)
					return fs.SkipDir
				}
				return nil
			}

			if path == root || match(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}
	return paths, nil
}

// Markdown scans roots for Markdown files.
func Markdown(roots []string) ([]string, error) {
	return Scan(roots, IsMarkdown)
}
