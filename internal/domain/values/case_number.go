package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// CaseNumber represents a canonical Ukrainian court case number value object.
// The canonical form is <3-4 digits>/<digits>/<2 digits>, optionally followed
// by a hyphenated Cyrillic suffix, e.g. "922/4626/23" or "922/4627/23-ц".
type CaseNumber struct {
	number string
}

var (
	// Canonical case number pattern used by both normalization and extraction.
	caseNumberRegex = regexp.MustCompile(`\d{3,4}/\d+/\d{2}(?:-[А-Яа-яІіЇїЄєҐґЦц]+)?`)

	// Leading markers stripped before matching: "№ 922/...", "# 922/...".
	caseMarkerRegex = regexp.MustCompile(`^[№#\s]+`)

	// Leading "справа" word, case-insensitive.
	caseWordRegex = regexp.MustCompile(`(?i)^справа\s*`)
)

// NewCaseNumber parses free-form text into a canonical case number.
// It strips a leading case marker and the word "справа", then matches the
// canonical pattern. Already-canonical input round-trips unchanged.
func NewCaseNumber(raw string) (CaseNumber, error) {
	if raw == "" {
		return CaseNumber{}, fmt.Errorf("case number cannot be empty")
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = caseMarkerRegex.ReplaceAllString(cleaned, "")
	cleaned = caseWordRegex.ReplaceAllString(cleaned, "")

	match := caseNumberRegex.FindString(cleaned)
	if match == "" {
		return CaseNumber{}, fmt.Errorf("no case number in %q", raw)
	}

	return CaseNumber{number: match}, nil
}

// MustNewCaseNumber creates a CaseNumber and panics on error (for tests).
func MustNewCaseNumber(raw string) CaseNumber {
	cn, err := NewCaseNumber(raw)
	if err != nil {
		panic(err)
	}
	return cn
}

// NormalizeCaseNumber is the functional form of NewCaseNumber. It returns the
// canonical string and true, or "" and false when no case number is present.
func NormalizeCaseNumber(raw string) (string, bool) {
	cn, err := NewCaseNumber(raw)
	if err != nil {
		return "", false
	}
	return cn.String(), true
}

// ExtractCaseNumbers scans arbitrary text (e.g. a task title) for all
// non-overlapping case numbers, deduplicating while preserving first-seen
// order. Empty input yields an empty slice.
func ExtractCaseNumbers(text string) []CaseNumber {
	if text == "" {
		return nil
	}

	matches := caseNumberRegex.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	result := make([]CaseNumber, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		result = append(result, CaseNumber{number: m})
	}

	return result
}

// String returns the canonical case number.
func (c CaseNumber) String() string {
	return c.number
}

// IsEmpty checks if the case number is unset.
func (c CaseNumber) IsEmpty() bool {
	return c.number == ""
}

// Equal checks if two CaseNumber values are equal.
func (c CaseNumber) Equal(other CaseNumber) bool {
	return c.number == other.number
}

// MarshalJSON implements JSON marshaling.
func (c CaseNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.number)
}

// UnmarshalJSON implements JSON unmarshaling.
func (c *CaseNumber) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*c = CaseNumber{}
		return nil
	}

	cn, err := NewCaseNumber(raw)
	if err != nil {
		return err
	}

	*c = cn
	return nil
}

// Value implements driver.Valuer for database storage.
func (c CaseNumber) Value() (driver.Value, error) {
	if c.number == "" {
		return nil, nil
	}
	return c.number, nil
}

// Scan implements sql.Scanner for database retrieval.
func (c *CaseNumber) Scan(value interface{}) error {
	if value == nil {
		*c = CaseNumber{}
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CaseNumber", value)
	}

	if str == "" {
		*c = CaseNumber{}
		return nil
	}

	cn, err := NewCaseNumber(str)
	if err != nil {
		return err
	}

	*c = cn
	return nil
}
