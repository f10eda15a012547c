package lexicon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type Mode int

const (
	ModeFuzzy     Mode = 0
	ModeExact     Mode = 1
	ModeAdminOnly Mode = 10
)

func (m Mode) String() string {
	switch m {
	case ModeFuzzy:
		return "fuzzy"
	case ModeExact:
		return "exact"
	case ModeAdminOnly:
		return "admin"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) Valid() bool {
	return m == ModeFuzzy || m == ModeExact || m == ModeAdminOnly
}

// Entry is immutable once published in a scope snapshot; edits produce a copy.
type Entry struct {
	Keyword   string
	Mode      Mode
	Responses []string

	pattern *variablePattern
}

func newEntry(keyword string, mode Mode, responses []string) *Entry {
	return &Entry{
		Keyword:   keyword,
		Mode:      mode,
		Responses: responses,
		pattern:   compilePattern(keyword),
	}
}

func (e *Entry) withResponses(responses []string) *Entry {
	return &Entry{
		Keyword:   e.Keyword,
		Mode:      e.Mode,
		Responses: responses,
		pattern:   e.pattern,
	}
}

// Listing is the read model returned by list and search.
type Listing struct {
	ID         int      `json:"id"`
	Keyword    string   `json:"keyword"`
	Mode       Mode     `json:"mode"`
	Replies    []string `json:"replies,omitempty"`
	ReplyCount int      `json:"reply_count"`
}

type jsonEntry struct {
	R []string `json:"r"`
	S Mode     `json:"s"`
}

type jsonDocument struct {
	Work []map[string]jsonEntry `json:"work"`
}

// decodeDocument parses {"work":[{"keyword":{"r":[...],"s":1}}, ...]} keeping
// the order of items and of keys inside an item.
func decodeDocument(text string) ([]*Entry, error) {
	dec := json.NewDecoder(strings.NewReader(text))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var entries []*Entry

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		if tok != "work" {
			var skip json.RawMessage
			if err = dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		entries, err = decodeWork(dec)
		if err != nil {
			return nil, err
		}
	}

	return entries, expectDelim(dec, '}')
}

func decodeWork(dec *json.Decoder) ([]*Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if tok != json.Delim('[') {
		return nil, fmt.Errorf("work: expected array, got %v", tok)
	}

	var entries []*Entry

	for dec.More() {
		if err = expectDelim(dec, '{'); err != nil {
			return nil, err
		}

		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}

			var raw jsonEntry
			if err = dec.Decode(&raw); err != nil {
				return nil, err
			}

			entries = append(entries, newEntry(keyTok.(string), raw.S, raw.R))
		}

		if err = expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}

	return entries, expectDelim(dec, ']')
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != delim {
		return fmt.Errorf("expected %v, got %v", delim, tok)
	}

	return nil
}

func encodeDocument(entries []*Entry) (string, error) {
	doc := jsonDocument{
		Work: make([]map[string]jsonEntry, 0, len(entries)),
	}

	for _, e := range entries {
		responses := e.Responses
		if responses == nil {
			responses = []string{}
		}

		doc.Work = append(doc.Work, map[string]jsonEntry{
			e.Keyword: {R: responses, S: e.Mode},
		})
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode lexicon: %w", err)
	}

	return buf.String(), nil
}

func cloneWith(entries []*Entry, index int, entry *Entry) []*Entry {
	result := slices.Clone(entries)
	result[index] = entry
	return result
}
