package moderation

import (
	"bufio"
	"io/fs"
	"strings"

	"chat-rooms/errors"
)

// LoadWords reads every file in the given filesystem and collects one
// forbidden word per line. Blank lines and lines starting with '#' are
// skipped.
func LoadWords(fsys fs.FS) ([]string, error) {
	var words []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		file, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		return scanner.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return words, nil
}
