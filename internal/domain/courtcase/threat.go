package courtcase

// ThreatTier is the four-level ordinal severity assigned to a classified case.
type ThreatTier string

const (
	TierCritical ThreatTier = "CRITICAL"
	TierHigh     ThreatTier = "HIGH"
	TierMedium   ThreatTier = "MEDIUM"
	TierLow      ThreatTier = "LOW"
)

// Rank returns the tier's ordinal position, highest first. Unknown tiers rank
// with MEDIUM.
func (t ThreatTier) Rank() int {
	switch t {
	case TierCritical:
		return 0
	case TierHigh:
		return 1
	case TierMedium:
		return 2
	case TierLow:
		return 3
	default:
		return 2
	}
}

// Emoji returns the marker used in notification text.
func (t ThreatTier) Emoji() string {
	switch t {
	case TierCritical:
		return "🚨"
	case TierHigh:
		return "⚠️"
	case TierLow:
		return "ℹ️"
	default:
		return "📋"
	}
}

// PartyRole is the tracked entity's role in a case, when resolvable from the
// party texts.
type PartyRole string

const (
	RolePlaintiff PartyRole = "plaintiff"
	RoleDefendant PartyRole = "defendant"
	RoleParty     PartyRole = "party" // named in the case but side unresolved
)

// CaseCategory is the coarse proceeding category derived from the case form.
type CaseCategory string

const (
	CategoryCriminal       CaseCategory = "criminal"
	CategoryCommercial     CaseCategory = "commercial"
	CategoryAdministrative CaseCategory = "administrative"
	CategoryCivil          CaseCategory = "civil"
)

// Assessment is the classifier's verdict for one case item.
type Assessment struct {
	Tier               ThreatTier
	IsCriminal         bool
	DangerousPlaintiff bool
	Role               PartyRole
	Category           CaseCategory
	Notes              []string
}
