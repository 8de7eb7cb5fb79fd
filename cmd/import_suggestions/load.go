package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"mozhi/pkg/domain"
	"mozhi/pkg/store"
)

// entry is one suggestion as written in a YAML file.
type entry struct {
	Type        string   `yaml:"type"`
	Name        string   `yaml:"name"`
	Alias       string   `yaml:"alias"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Examples    string   `yaml:"examples"`
	Language    string   `yaml:"language"`
	Popularity  *int     `yaml:"popularity"`
}

// file accepts either a bare list or a document with a suggestions key.
// Entries under defaults fill in blank type and language fields.
type file struct {
	Defaults struct {
		Type     string `yaml:"type"`
		Language string `yaml:"language"`
	} `yaml:"defaults"`
	Suggestions []entry `yaml:"suggestions"`
}

func parseFile(path string, data []byte) ([]domain.CommonSuggestion, error) {
	var doc file
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("-")) {
		if err := yaml.Unmarshal(data, &doc.Suggestions); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make([]domain.CommonSuggestion, 0, len(doc.Suggestions))
	for i, e := range doc.Suggestions {
		if strings.TrimSpace(e.Type) == "" {
			e.Type = doc.Defaults.Type
		}
		if strings.TrimSpace(e.Language) == "" {
			e.Language = doc.Defaults.Language
		}
		s, err := e.toSuggestion()
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", path, i+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (e entry) toSuggestion() (domain.CommonSuggestion, error) {
	s := domain.CommonSuggestion{
		Type:        strings.TrimSpace(e.Type),
		Name:        strings.TrimSpace(e.Name),
		Alias:       optional(e.Alias),
		Description: optional(e.Description),
		Examples:    optional(e.Examples),
		Language:    optional(e.Language),
		Popularity:  e.Popularity,
	}
	if len(e.Tags) > 0 {
		s.Tags = optional(strings.Join(e.Tags, ","))
	}
	switch {
	case s.Type == "":
		return s, errors.New("type is required")
	case s.Name == "":
		return s, errors.New("name is required")
	case utf8.RuneCountInString(s.Type) > 32:
		return s, errors.New("type must not exceed 32 characters")
	case utf8.RuneCountInString(s.Name) > 128:
		return s, errors.New("name must not exceed 128 characters")
	}
	return s, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// loadFiles parses every file concurrently and merges the results in
// argument order. A later (type, name) entry replaces an earlier one.
func loadFiles(ctx context.Context, paths []string) ([]domain.CommonSuggestion, error) {
	parsed := make([][]domain.CommonSuggestion, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			items, err := parseFile(path, data)
			if err != nil {
				return err
			}
			parsed[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := map[string]int{}
	var out []domain.CommonSuggestion
	for _, items := range parsed {
		for _, s := range items {
			key := s.Type + "\x00" + s.Name
			if i, ok := index[key]; ok {
				out[i] = s
				continue
			}
			index[key] = len(out)
			out = append(out, s)
		}
	}
	return out, nil
}

// importSuggestions upserts items in one unit of work.
func importSuggestions(ctx context.Context, st store.Store, items []domain.CommonSuggestion) (int, error) {
	n := 0
	err := st.WithSession(ctx, func(tx store.Store) error {
		for i := range items {
			if err := tx.Suggestions().Upsert(ctx, &items[i]); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", items[i].Type, items[i].Name, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
