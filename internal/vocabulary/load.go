// Package vocabulary loads the keyword and pattern tables that drive clause
// categorization, constraint extraction and scoring from YAML or TOML files.
//
// A file only needs the entries it changes. Empty tables fall back to the
// built-in defaults, so
//
//	clause:
//	  proximity_window: 3
//	constraint:
//	  fallback:
//	    disabled: true
//
// keeps every keyword list and regex as shipped.
package vocabulary

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
	"github.com/fyrsmithlabs/claimd/internal/decision"
	"github.com/fyrsmithlabs/claimd/internal/risk"
)

const maxFileSize = 1024 * 1024

var (
	// ErrUnsupportedFormat is returned for extensions other than .yaml, .yml and .toml.
	ErrUnsupportedFormat = errors.New("unsupported vocabulary format")

	// ErrInvalidTables is returned when a loaded table cannot be used.
	ErrInvalidTables = errors.New("invalid vocabulary tables")
)

// Format is a vocabulary file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Tables is one complete set of engine tables.
type Tables struct {
	// Source is the file the tables came from, empty for the defaults.
	Source     string
	Vocabulary clause.Vocabulary
	Patterns   constraint.Patterns
	Risk       *risk.Config
}

// Defaults returns the built-in tables.
func Defaults() *Tables {
	return &Tables{
		Vocabulary: clause.DefaultVocabulary(),
		Patterns:   constraint.DefaultPatterns(),
		Risk:       risk.DefaultConfig(),
	}
}

// Engine builds a decision engine from the tables.
func (t *Tables) Engine() *decision.Engine {
	return decision.NewEngineFromVocabulary(t.Vocabulary, t.Patterns, t.Risk)
}

// Validate rejects tables the engine would silently degrade on: regexes
// that do not compile, unknown units or limit types and out-of-range
// thresholds.
func (t *Tables) Validate() error {
	for _, p := range t.Patterns.Waiting {
		if _, err := regexp.Compile(p.Regex); err != nil {
			return fmt.Errorf("%w: waiting pattern %q: %v", ErrInvalidTables, p.Name, err)
		}
		switch p.Unit {
		case constraint.UnitDays, constraint.UnitMonths, constraint.UnitYears:
		default:
			return fmt.Errorf("%w: waiting pattern %q: unknown unit %q", ErrInvalidTables, p.Name, p.Unit)
		}
	}
	for _, p := range t.Patterns.Age {
		if _, err := regexp.Compile(p.Regex); err != nil {
			return fmt.Errorf("%w: age pattern %q: %v", ErrInvalidTables, p.Name, err)
		}
		switch p.LimitType {
		case constraint.AgeMin, constraint.AgeMax, constraint.AgeRange:
		default:
			return fmt.Errorf("%w: age pattern %q: unknown limit type %q", ErrInvalidTables, p.Name, p.LimitType)
		}
	}
	if t.Vocabulary.ProximityWindow < 0 {
		return fmt.Errorf("%w: proximity_window must not be negative", ErrInvalidTables)
	}
	if r := t.Risk; r != nil {
		for name, v := range map[string]float64{
			"strong_similarity":   r.StrongSimilarity,
			"satisfied_threshold": r.SatisfiedThreshold,
			"partial_threshold":   r.PartialThreshold,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: risk.%s must be within [0,1], got %g", ErrInvalidTables, name, v)
			}
		}
		if r.PartialThreshold > r.SatisfiedThreshold {
			return fmt.Errorf("%w: risk.partial_threshold exceeds satisfied_threshold", ErrInvalidTables)
		}
		if r.Saturation <= 0 || r.ClausePAI.Saturation <= 0 || r.AlignmentPAI.Saturation <= 0 {
			return fmt.Errorf("%w: saturation values must be positive", ErrInvalidTables)
		}
	}
	return nil
}

// Load reads and validates a vocabulary file.
func Load(path string) (*Tables, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat vocabulary file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("vocabulary file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary file: %w", err)
	}

	t, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	t.Source = path
	return t, nil
}

// Parse decodes and validates vocabulary tables.
func Parse(data []byte, format Format) (*Tables, error) {
	var (
		t   *Tables
		err error
	)
	switch format {
	case FormatYAML:
		t, err = parseYAML(data)
	case FormatTOML:
		t, err = parseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Tables decode into zero values so a short list in the file replaces the
// default list instead of overwriting its first elements. Only the
// proximity window needs an explicit presence check: zero is a meaningful
// value for it.
func parseYAML(data []byte) (*Tables, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	t := &Tables{Risk: risk.DefaultConfig()}
	if err := k.Unmarshal("clause", &t.Vocabulary); err != nil {
		return nil, fmt.Errorf("decoding clause section: %w", err)
	}
	if err := k.Unmarshal("constraint", &t.Patterns); err != nil {
		return nil, fmt.Errorf("decoding constraint section: %w", err)
	}
	if err := k.Unmarshal("risk", t.Risk); err != nil {
		return nil, fmt.Errorf("decoding risk section: %w", err)
	}
	if !k.Exists("clause.proximity_window") {
		t.Vocabulary.ProximityWindow = clause.DefaultProximityWindow
	}
	return t, nil
}

type tomlFile struct {
	Clause     clause.Vocabulary   `toml:"clause"`
	Constraint constraint.Patterns `toml:"constraint"`
	Risk       *risk.Config        `toml:"risk"`
}

func parseTOML(data []byte) (*Tables, error) {
	file := tomlFile{Risk: risk.DefaultConfig()}
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("decoding toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidTables, strings.Join(keys, ", "))
	}
	if !md.IsDefined("clause", "proximity_window") {
		file.Clause.ProximityWindow = clause.DefaultProximityWindow
	}
	return &Tables{
		Vocabulary: file.Clause,
		Patterns:   file.Constraint,
		Risk:       file.Risk,
	}, nil
}
