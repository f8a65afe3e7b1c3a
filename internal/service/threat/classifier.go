package threat

import (
	"strings"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// Input is the unit the classifier consumes: the case form text and whatever
// party texts the feed carried, plus the tracked company the event matched.
type Input struct {
	Category  string // free-text case form, e.g. "Кримінальне провадження"
	Plaintiff string
	Defendant string
	Company   values.EDRPOU
}

// Config holds the keyword lists the classifier matches against. It is
// immutable after construction; classification is a pure function of
// (input, config).
type Config struct {
	// DangerousPlaintiffs are substrings (lowercase) that mark a plaintiff as
	// a state enforcement body: prosecutors, tax, police and similar.
	DangerousPlaintiffs []string
}

// DefaultDangerousPlaintiffs is the stock list of state-enforcement plaintiff
// keywords.
var DefaultDangerousPlaintiffs = []string{
	"прокуратура",
	"податкова",
	"поліція",
	"дбр",
	"набу",
	"сбу",
	"держгеокадастр",
	"виконавча служба",
}

// Classifier assigns a threat tier to case items. It is stateless and safe
// for concurrent use.
type Classifier struct {
	dangerous []string
}

// NewClassifier builds a classifier from config. Keywords are lowercased
// once here; an empty list falls back to the defaults.
func NewClassifier(cfg Config) *Classifier {
	keywords := cfg.DangerousPlaintiffs
	if len(keywords) == 0 {
		keywords = DefaultDangerousPlaintiffs
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	return &Classifier{dangerous: lowered}
}

// Classify determines the threat tier for one case item. It is total: any
// input produces an assessment, defaulting to the MEDIUM tier with the
// company assumed to be the defendant.
//
// Precedence is fixed: a criminal category always wins and short-circuits;
// otherwise a dangerous plaintiff raises HIGH; otherwise the company
// appearing as plaintiff lowers to LOW.
func (c *Classifier) Classify(in Input) courtcase.Assessment {
	result := courtcase.Assessment{
		Tier:     courtcase.TierMedium,
		Role:     courtcase.RoleDefendant,
		Category: courtcase.CategoryCivil,
	}

	form := strings.ToLower(in.Category)

	switch {
	case strings.Contains(form, "кримінальн"):
		result.IsCriminal = true
		result.Category = courtcase.CategoryCriminal
		result.Tier = courtcase.TierCritical
		result.Notes = append(result.Notes, "Кримінальне провадження")
	case strings.Contains(form, "господарськ"):
		result.Category = courtcase.CategoryCommercial
		result.Notes = append(result.Notes, "Господарське судочинство")
	case strings.Contains(form, "адміністративн"):
		result.Category = courtcase.CategoryAdministrative
		result.Notes = append(result.Notes, "Адміністративне судочинство")
	case strings.Contains(form, "цивільн"):
		result.Category = courtcase.CategoryCivil
		result.Notes = append(result.Notes, "Цивільне судочинство")
	}

	plaintiff := strings.ToLower(in.Plaintiff)
	defendant := strings.ToLower(in.Defendant)

	if plaintiff != "" || defendant != "" {
		switch {
		case in.Company.MatchesText(defendant):
			result.Role = courtcase.RoleDefendant
		case in.Company.MatchesText(plaintiff):
			result.Role = courtcase.RolePlaintiff
			if !result.IsCriminal {
				// A claim the company itself initiated is a controlled situation.
				result.Tier = courtcase.TierLow
			}
		default:
			result.Role = courtcase.RoleParty
		}
	}

	// Criminal always wins; dangerous-plaintiff detection cannot upgrade or
	// downgrade past it. First keyword match wins, no stacking.
	if !result.IsCriminal {
		for _, kw := range c.dangerous {
			if strings.Contains(plaintiff, kw) {
				result.DangerousPlaintiff = true
				result.Tier = courtcase.TierHigh
				result.Notes = append(result.Notes, "Держорган: "+kw)
				break
			}
		}
	}

	if len(result.Notes) == 0 {
		result.Notes = append(result.Notes, "Стандартне провадження")
	}

	return result
}
