package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Pack is a ready-made game: a name, its teams and its questions. A pack
// file may hold several YAML documents, one pack each.
//
//	name: Friday quiz
//	teams:
//	  - name: Red
//	    color: "#FF6B6B"
//	  - name: Blue
//	questions:
//	  - text: What share of the Earth is covered by water?
//	    answer: 71
type Pack struct {
	Name      string         `yaml:"name"`
	Teams     []PackTeam     `yaml:"teams"`
	Questions []PackQuestion `yaml:"questions"`
}

type PackTeam struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type PackQuestion struct {
	Text   string `yaml:"text"`
	Answer *int   `yaml:"answer"`
}

// ParsePacks decodes every document in r. Unknown keys are rejected.
func ParsePacks(r io.Reader) ([]Pack, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var packs []Pack
	for {
		var p Pack
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newInvalidInput("pack %d: %v", len(packs)+1, err)
		}
		packs = append(packs, p)
	}

	return packs, nil
}

// LoadPackFile parses the packs in the named file.
func LoadPackFile(path string) ([]Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pack file: %w", err)
	}
	defer f.Close()

	packs, err := ParsePacks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return packs, nil
}

// build turns a pack into an unsaved game, applying the same validation as
// the one-at-a-time operations.
func (p Pack) build() (*Game, error) {
	name, err := normalizeGameName(p.Name)
	if err != nil {
		return nil, err
	}

	g := &Game{Name: name}
	for _, t := range p.Teams {
		if _, err := g.AddTeam(t.Name, t.Color); err != nil {
			return nil, err
		}
	}
	for _, q := range p.Questions {
		correct := DefaultCorrectAnswer
		if q.Answer != nil {
			correct = *q.Answer
		}
		if _, err := g.AddQuestion(q.Text, correct); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// CreateFromPack creates a game holding everything in p, or nothing at all
// if any part of p is invalid.
func (e *Engine) CreateFromPack(ctx context.Context, p Pack) (*Game, error) {
	g, err := p.build()
	if err != nil {
		return nil, err
	}
	return e.insert(ctx, g)
}
