// Package document converts the user document between its in-memory form
// and the sealed bytes kept in the blob store.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/dmitrijs2005/datahub/internal/server/models"
)

// Sealer is the confidentiality layer; cryptox.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Strategy names, as reported by Decode.
const (
	SourceSealed    = "sealed"
	SourceFernet    = "fernet"
	SourcePlaintext = "plaintext"
	SourceEmpty     = "empty"
)

// Strategy turns raw blob bytes into candidate YAML text.
type Strategy struct {
	Name string
	Text func(raw []byte) ([]byte, error)
}

type Codec struct {
	sealer     Sealer
	strategies []Strategy
}

type CodecOption func(*Codec)

// WithFallback adds a strategy tried after the sealer and before plaintext.
func WithFallback(s Strategy) CodecOption {
	return func(c *Codec) {
		c.strategies = append(c.strategies, s)
	}
}

// WithFernet reads documents written as Fernet tokens. They are re-sealed
// on the next write.
func WithFernet(f *cryptox.Fernet) CodecOption {
	return WithFallback(Strategy{Name: SourceFernet, Text: f.Open})
}

func NewCodec(sealer Sealer, opts ...CodecOption) *Codec {
	c := &Codec{
		sealer:     sealer,
		strategies: []Strategy{{Name: SourceSealed, Text: sealer.Open}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.strategies = append(c.strategies, Strategy{Name: SourcePlaintext, Text: plaintext})
	return c
}

// plaintext reads raw as UTF-8, dropping invalid sequences.
func plaintext(raw []byte) ([]byte, error) {
	return []byte(strings.ToValidUTF8(string(raw), "")), nil
}

// firstParse feeds each strategy's text to parse until one succeeds and
// returns that strategy's name.
func (c *Codec) firstParse(raw []byte, parse func(text []byte) error) (string, error) {
	var errs []error
	for _, s := range c.strategies {
		text, err := s.Text(raw)
		if err == nil {
			err = parse(text)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		return s.Name, nil
	}
	return "", fmt.Errorf("%w: %w", common.ErrDecodeFailure, errors.Join(errs...))
}

// Decode runs the strategies in order and returns the first document that
// parses, along with the name of the strategy that produced it.
//
// Empty input is an empty document. When every strategy fails Decode still
// returns an empty document, together with an error wrapping
// common.ErrDecodeFailure, so callers may log it and carry on.
func (c *Codec) Decode(raw []byte) (*models.Document, string, error) {
	if len(raw) == 0 {
		return models.NewDocument(), SourceEmpty, nil
	}

	var doc *models.Document
	name, err := c.firstParse(raw, func(text []byte) error {
		d, err := Parse(text)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return models.NewDocument(), SourceEmpty, err
	}
	return doc, name, nil
}

// Encode renders doc and seals it. Documents are always written sealed.
func (c *Codec) Encode(doc *models.Document) ([]byte, error) {
	text, err := Render(doc)
	if err != nil {
		return nil, err
	}
	sealed, err := c.sealer.Seal(text)
	if err != nil {
		return nil, fmt.Errorf("seal document: %w", err)
	}
	return sealed, nil
}

// DecodeSettings reads the log configuration document with the same
// strategies as Decode. The returned settings are always usable: absent or
// unreadable input yields the defaults (with an error in the latter case).
func (c *Codec) DecodeSettings(raw []byte) (models.LogSettings, error) {
	settings := models.DefaultLogSettings()
	if len(raw) == 0 {
		return settings, nil
	}

	_, err := c.firstParse(raw, func(text []byte) error {
		s, err := ParseSettings(text)
		if err != nil {
			return err
		}
		settings = s
		return nil
	})
	if err != nil {
		return models.DefaultLogSettings(), err
	}
	return settings, nil
}
