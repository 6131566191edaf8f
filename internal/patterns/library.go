package patterns

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/projeval/internal/contracts"
)

// ErrInvalidLibrary wraps every library validation failure
var ErrInvalidLibrary = errors.New("invalid pattern library")

//go:embed default_library.yaml
var defaultLibraryYAML []byte

// Library 패턴 라이브러리 (data-driven, 재배포 없이 편집 가능)
type Library struct {
	Version  string                      `yaml:"version" json:"version"`
	Patterns []contracts.DecisionPattern `yaml:"patterns" json:"patterns"`
}

// ValidationError 라이브러리 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers test with errors.Is(err, ErrInvalidLibrary)
func (e ValidationError) Unwrap() error {
	return ErrInvalidLibrary
}

// LoadLibrary reads and validates a YAML library file.
// An empty path returns the embedded default library.
func LoadLibrary(path string) (*Library, error) {
	if path == "" {
		return DefaultLibrary()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern library: %w", err)
	}
	return ParseLibrary(data)
}

// DefaultLibrary returns the embedded seed library
func DefaultLibrary() (*Library, error) {
	return ParseLibrary(defaultLibraryYAML)
}

// ParseLibrary decodes YAML strictly: unknown fields fail immediately
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 오타/미사용 필드 즉시 실패
	if err := dec.Decode(&lib); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidLibrary, err)
	}

	if err := Validate(&lib); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks ids, categories, operators and conditions
func Validate(lib *Library) error {
	if lib.Version == "" {
		return ValidationError{"version", "required"}
	}
	if len(lib.Patterns) == 0 {
		return ValidationError{"patterns", "at least one pattern required"}
	}

	seen := make(map[string]struct{}, len(lib.Patterns))
	for i, p := range lib.Patterns {
		field := fmt.Sprintf("patterns[%d]", i)

		if p.ID == "" {
			return ValidationError{field + ".id", "required"}
		}
		if _, dup := seen[p.ID]; dup {
			return ValidationError{field + ".id", fmt.Sprintf("duplicate id %q", p.ID)}
		}
		seen[p.ID] = struct{}{}

		if p.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if p.Version < 1 {
			return ValidationError{field + ".version", "must be >= 1"}
		}
		if !validCategory(p.Category) {
			return ValidationError{field + ".category", fmt.Sprintf("unknown category %q", p.Category)}
		}
		if len(p.Conditions) == 0 {
			return ValidationError{field + ".conditions", "at least one condition required"}
		}

		for j, c := range p.Conditions {
			cf := fmt.Sprintf("%s.conditions[%d]", field, j)
			if c.Dimension == "" {
				return ValidationError{cf + ".dimension", "required"}
			}
			if !validOp(c.Op) {
				return ValidationError{cf + ".op", fmt.Sprintf("unknown operator %q", c.Op)}
			}
			if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
				return ValidationError{cf + ".threshold", "must be finite"}
			}
		}
	}
	return nil
}

// Hash SHA256 of the canonical JSON form; recorded with each run
func Hash(lib *Library) (string, error) {
	jsonBytes, err := json.Marshal(lib)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Find returns the pattern with the given id
func (l *Library) Find(id string) (contracts.DecisionPattern, bool) {
	for _, p := range l.Patterns {
		if p.ID == id {
			return p, true
		}
	}
	return contracts.DecisionPattern{}, false
}

func validCategory(c contracts.PatternCategory) bool {
	switch c {
	case contracts.PatternRiskIndicator, contracts.PatternSuccessDriver, contracts.PatternCostAnomaly:
		return true
	}
	return false
}

func validOp(op contracts.ComparisonOp) bool {
	switch op {
	case contracts.OpLess, contracts.OpGreater, contracts.OpLessEqual, contracts.OpGreaterEqual, contracts.OpEqual:
		return true
	}
	return false
}
