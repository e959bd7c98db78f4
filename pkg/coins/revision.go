package coins

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RevisionKey is the pointer file field holding the coins repository commit.
const RevisionKey = "coins_repo_commit"

// ErrMissingRevision is returned when the pointer file has no usable
// revision. Nothing has been fetched when it is returned.
var ErrMissingRevision = errors.New("coins: revision not found")

// LoadRevision reads the pointer file at path and returns its revision.
func LoadRevision(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("coins: read revision file: %w", err)
	}
	return ParseRevision(path, data)
}

// ParseRevision extracts the revision from pointer file contents. name is
// only used in error messages.
func ParseRevision(name string, data []byte) (string, error) {
	var pointer map[string]json.RawMessage
	if err := json.Unmarshal(data, &pointer); err != nil {
		return "", fmt.Errorf("coins: parse revision file %s: %w", name, err)
	}

	raw, ok := pointer[RevisionKey]
	if !ok {
		return "", fmt.Errorf("%w: %s missing from %s", ErrMissingRevision, RevisionKey, name)
	}

	var revision string
	if err := json.Unmarshal(raw, &revision); err != nil {
		return "", fmt.Errorf("%w: %s in %s is not a string", ErrMissingRevision, RevisionKey, name)
	}
	return revision, nil
}
