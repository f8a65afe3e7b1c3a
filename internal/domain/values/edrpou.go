package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// EDRPOU represents a Ukrainian unified state registry code for a legal
// entity. Upstream systems disagree on zero padding ("34328899" vs
// "034328899"), so equality strips leading zeros while the original form is
// preserved for storage and display.
type EDRPOU struct {
	code string
}

// NewEDRPOU creates an EDRPOU value object. The code must be 4 to 10 digits;
// legal entities carry 8 digits but registry feeds pad with leading zeros.
func NewEDRPOU(code string) (EDRPOU, error) {
	cleaned := strings.TrimSpace(code)
	if cleaned == "" {
		return EDRPOU{}, fmt.Errorf("edrpou cannot be empty")
	}
	if len(cleaned) < 4 || len(cleaned) > 10 {
		return EDRPOU{}, fmt.Errorf("invalid edrpou length: %q", code)
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return EDRPOU{}, fmt.Errorf("edrpou must be digits only: %q", code)
		}
	}

	return EDRPOU{code: cleaned}, nil
}

// MustNewEDRPOU creates an EDRPOU and panics on error (for tests).
func MustNewEDRPOU(code string) EDRPOU {
	e, err := NewEDRPOU(code)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the code in its original, possibly zero-padded form.
func (e EDRPOU) String() string {
	return e.code
}

// Normalized returns the code with leading zeros stripped. This is the form
// used at comparison boundaries between upstream systems.
func (e EDRPOU) Normalized() string {
	trimmed := strings.TrimLeft(e.code, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// IsEmpty checks if the code is unset.
func (e EDRPOU) IsEmpty() bool {
	return e.code == ""
}

// Equal compares two codes ignoring leading-zero differences.
func (e EDRPOU) Equal(other EDRPOU) bool {
	return e.Normalized() == other.Normalized()
}

// MatchesText reports whether the code appears in free text (party names
// often embed the registry code, sometimes with spacing).
func (e EDRPOU) MatchesText(text string) bool {
	if e.code == "" || text == "" {
		return false
	}
	compact := strings.ReplaceAll(text, " ", "")
	return strings.Contains(compact, e.code) || strings.Contains(compact, e.Normalized())
}

// MarshalJSON implements JSON marshaling.
func (e EDRPOU) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.code)
}

// UnmarshalJSON implements JSON unmarshaling.
func (e *EDRPOU) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	if code == "" {
		*e = EDRPOU{}
		return nil
	}

	parsed, err := NewEDRPOU(code)
	if err != nil {
		return err
	}

	*e = parsed
	return nil
}

// Value implements driver.Valuer for database storage. The original padded
// form is persisted.
func (e EDRPOU) Value() (driver.Value, error) {
	if e.code == "" {
		return nil, nil
	}
	return e.code, nil
}

// Scan implements sql.Scanner for database retrieval.
func (e *EDRPOU) Scan(value interface{}) error {
	if value == nil {
		*e = EDRPOU{}
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into EDRPOU", value)
	}

	if str == "" {
		*e = EDRPOU{}
		return nil
	}

	parsed, err := NewEDRPOU(str)
	if err != nil {
		return err
	}

	*e = parsed
	return nil
}
