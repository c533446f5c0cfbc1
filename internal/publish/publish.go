// Package publish writes a scenario run as markdown pages.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gridform/internal/scenario"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteResultPages writes <toDir>/index.md and one page per document under
// <toDir>/documents. It stops at the first error.
func WriteResultPages(res *scenario.Result, toDir string, opt WriteOptions) (WriteResult, error) {
	if res == nil {
		return WriteResult{}, errors.New("missing result")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	docsDir := filepath.Join(toDir, "documents")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexMD, err := RenderIndexMarkdown(res)
	if err != nil {
		return WriteResult{}, err
	}
	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(indexMD), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	written := []string{indexPath}
	for _, d := range res.Documents {
		p := filepath.Join(docsDir, d.ID+".md")
		if err := writeFile(p, []byte(RenderDocumentMarkdown(d)), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
