package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Corpus is the full level collection in document order.
type Corpus struct {
	Levels []Level
}

// Len returns the number of levels.
func (c *Corpus) Len() int {
	return len(c.Levels)
}

// IDs returns the level identifiers in document order.
func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.Levels))
	for i, l := range c.Levels {
		ids[i] = l.ID
	}
	return ids
}

// LoadFile reads and parses the corpus at path.
func LoadFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a JSON object mapping identifiers to arrays of row strings.
// Key order is preserved; duplicate identifiers are rejected. The result is
// either the whole corpus or an error.
func Parse(r io.Reader) (*Corpus, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("reading opening token", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: top level must be an object, got %v", ErrMalformedCorpus, tok)
	}

	c := &Corpus{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("reading identifier", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected identifier, got %v", ErrMalformedCorpus, tok)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate identifier %q", ErrMalformedCorpus, id)
		}
		seen[id] = struct{}{}

		rows, err := decodeRows(dec)
		if err != nil {
			return nil, fmt.Errorf("level %q: %w", id, err)
		}
		c.Levels = append(c.Levels, Level{ID: id, Rows: rows})
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed("reading closing token", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after corpus object", ErrMalformedCorpus)
	}

	return c, nil
}

func decodeRows(dec *json.Decoder) ([]string, error) {
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed("decoding rows", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: rows must be an array", ErrMalformedCorpus)
	}
	rows := make([]string, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is %T, want string", ErrMalformedCorpus, i, v)
		}
		rows[i] = s
	}
	return rows, nil
}

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedCorpus, what, err)
}
