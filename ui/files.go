package ui

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/muesli/gitcha"
)

var markdownExtensions = []string{
	"*.md", "*.mdown", "*.mkdn", "*.mkd", "*.markdown",
}

// FindMarkdownFiles returns the markdown files below dir, sorted. Unless
// all is set, files ignored by git are skipped.
func FindMarkdownFiles(dir string, all bool) ([]string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("error finding local files: %w", err)
	}

	var ch chan gitcha.SearchResult
	if all {
		ch, err = gitcha.FindAllFilesExcept(dir, markdownExtensions, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, markdownExtensions, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding local files: %w", err)
	}

	var files []string
	for res := range ch {
		files = append(files, res.Path)
	}
	sort.Strings(files)
	return files, nil
}
