package coins

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cipig/komodo-wallet-mobile/pkg/coins/schema"
)

var (
	// ErrNoCoins is returned when neither document yields a coin. It signals
	// an unusable upstream response.
	ErrNoCoins = errors.New("coins: no coins found")

	// ErrInvalidDocument is returned when a document does not have the
	// expected shape.
	ErrInvalidDocument = errors.New("coins: invalid document")
)

// Coin is the part of a coin record this package reads.
type Coin struct {
	Coin string `json:"coin"`
}

// Identifier returns the lower-cased part of the coin name before the first
// "-".
func (c Coin) Identifier() string {
	name, _, _ := strings.Cut(c.Coin, "-")
	return strings.ToLower(name)
}

var schemas = sync.OnceValues(func() (map[string]*gojsonschema.Schema, error) {
	out := make(map[string]*gojsonschema.Schema, 2)
	for name, src := range map[string][]byte{
		"coins":        schema.CoinList,
		"coins_config": schema.CoinConfig,
	} {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(src))
		if err != nil {
			return nil, fmt.Errorf("coins: compile %s schema: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
})

// ExtractNames returns the coin identifiers of the coin list followed by
// those of the coin config map, in document order. Duplicates are kept.
func ExtractNames(list, configMap []byte) ([]string, error) {
	if err := validate("coins", list); err != nil {
		return nil, err
	}
	if err := validate("coins_config", configMap); err != nil {
		return nil, err
	}

	var records []Coin
	if err := json.Unmarshal(list, &records); err != nil {
		return nil, fmt.Errorf("%w: coins: %v", ErrInvalidDocument, err)
	}

	values, err := orderedValues(configMap)
	if err != nil {
		return nil, fmt.Errorf("%w: coins_config: %v", ErrInvalidDocument, err)
	}
	records = append(records, values...)

	if len(records) == 0 {
		return nil, ErrNoCoins
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Identifier())
	}
	return names, nil
}

func validate(name string, doc []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}

	result, err := all[name].Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, name, strings.Join(msgs, "; "))
}

// orderedValues decodes the values of a JSON object in key order of the
// document, which encoding/json maps do not preserve.
func orderedValues(doc []byte) ([]Coin, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out []Coin
	for dec.More() {
		// key
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var c Coin
		if err := dec.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
