package feed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jcline/jcline/src/internal/domain"
)

// FileSource reads candidates from a YAML document:
//
//	movies:
//	  - {id: 1, name: "Example Movie", date: "2024-05-01"}
//	episodes:
//	  - {id: 2, name: "Example Show", date: "2024-05-02"}
//
// The file is re-read on every call so edits apply to the next derivation.
type FileSource struct {
	path string
}

type fileFeed struct {
	Movies   []domain.NewContentItem `yaml:"movies"`
	Episodes []domain.NewContentItem `yaml:"episodes"`
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) load() (*fileFeed, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", s.path, err)
	}
	var f fileFeed
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", s.path, err)
	}
	return &f, nil
}

func (s *FileSource) NewMovies(ctx context.Context) ([]domain.NewContentItem, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Movies, nil
}

func (s *FileSource) NewEpisodes(ctx context.Context) ([]domain.NewContentItem, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Episodes, nil
}
