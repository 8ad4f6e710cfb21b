package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	model "ngramlm/internal/model/ngram"
	"ngramlm/internal/service/textnorm"
)

// Document is one normalized training or evaluation text
type Document struct {
	ID     string        `json:"id"`
	Source string        `json:"source"`
	Author string        `json:"author,omitempty"`
	Tokens []model.Token `json:"tokens"`
}

// Review is one entry of a review file's "Reviews" array
type Review struct {
	ReviewID string `json:"ReviewID"`
	Author   string `json:"Author"`
	Content  string `json:"Content"`
	Date     string `json:"Date"`
	Location string `json:"Author_Location"`
}

type reviewFile struct {
	Reviews        []Review        `json:"Reviews"`
	RestaurantInfo json.RawMessage `json:"RestaurantInfo"`
}

// LoadResult summarizes one directory load
type LoadResult struct {
	Files        int `json:"files"`
	Documents    int `json:"documents"`
	SkippedFiles int `json:"skipped_files"`
	SkippedDocs  int `json:"skipped_docs"`
}

// Loader walks a directory and turns matching files into documents. JSON files
// are read as review collections; any other matching file is one document.
type Loader struct {
	includes   []string
	excludes   []string
	normalizer *textnorm.Normalizer
	logger     *zap.Logger
}

// NewLoader creates a loader. With no includes every JSON file is loaded.
func NewLoader(includes, excludes []string, normalizer *textnorm.Normalizer, logger *zap.Logger) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*.json"}
	}
	if normalizer == nil {
		normalizer = textnorm.NewNormalizer()
	}
	return &Loader{
		includes:   includes,
		excludes:   excludes,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Load walks root and calls fn for each document. A file that cannot be read
// or decoded is logged and skipped; an error from fn stops the walk.
func (l *Loader) Load(ctx context.Context, root string, fn func(Document) error) (LoadResult, error) {
	var result LoadResult

	root, err := filepath.Abs(root)
	if err != nil {
		return result, fmt.Errorf("invalid corpus path: %w", err)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && l.matches(l.excludes, relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.matches(l.includes, relPath) || l.matches(l.excludes, relPath) {
			return nil
		}

		docs, err := l.readFile(path, relPath)
		if err != nil {
			l.logger.Warn("Skipping unreadable corpus file",
				zap.String("path", path),
				zap.Error(err))
			result.SkippedFiles++
			return nil
		}
		result.Files++

		for _, doc := range docs {
			if len(doc.Tokens) == 0 {
				result.SkippedDocs++
				continue
			}
			if err := fn(doc); err != nil {
				return fmt.Errorf("failed to handle document %s: %w", doc.ID, err)
			}
			result.Documents++
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	l.logger.Info("Loaded corpus directory",
		zap.String("root", root),
		zap.Int("files", result.Files),
		zap.Int("documents", result.Documents),
		zap.Int("skipped_files", result.SkippedFiles),
		zap.Int("skipped_docs", result.SkippedDocs))

	return result, nil
}

func (l *Loader) matches(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (l *Loader) readFile(path, relPath string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return []Document{{
			ID:     relPath,
			Source: relPath,
			Tokens: l.normalizer.Tokenize(string(data)),
		}}, nil
	}

	var file reviewFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode review file: %w", err)
	}

	docs := make([]Document, 0, len(file.Reviews))
	for i, review := range file.Reviews {
		id := review.ReviewID
		if id == "" {
			id = fmt.Sprintf("%s#%d", relPath, i)
		}
		docs = append(docs, Document{
			ID:     id,
			Source: relPath,
			Author: review.Author,
			Tokens: l.normalizer.Tokenize(review.Content),
		})
	}
	return docs, nil
}
