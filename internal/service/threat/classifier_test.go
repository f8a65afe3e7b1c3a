package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier(Config{})
	company := values.MustNewEDRPOU("34328899")

	tests := []struct {
		name           string
		input          Input
		wantTier       courtcase.ThreatTier
		wantRole       courtcase.PartyRole
		wantCategory   courtcase.CaseCategory
		wantCriminal   bool
		wantDangerous  bool
		wantNoteSubstr string
	}{
		{
			name: "criminal is always critical",
			input: Input{
				Category:  "Кримінальне провадження",
				Defendant: "ТОВ Агро, 34328899",
				Company:   company,
			},
			wantTier:       courtcase.TierCritical,
			wantRole:       courtcase.RoleDefendant,
			wantCategory:   courtcase.CategoryCriminal,
			wantCriminal:   true,
			wantNoteSubstr: "Кримінальне провадження",
		},
		{
			name: "criminal wins over company as plaintiff",
			input: Input{
				Category:  "Кримінальне судочинство",
				Plaintiff: "ТОВ Агро, 34328899",
				Company:   company,
			},
			wantTier:     courtcase.TierCritical,
			wantRole:     courtcase.RolePlaintiff,
			wantCategory: courtcase.CategoryCriminal,
			wantCriminal: true,
		},
		{
			name: "criminal wins over dangerous plaintiff",
			input: Input{
				Category:  "Кримінальне провадження",
				Plaintiff: "Обласна прокуратура",
				Defendant: "ТОВ Агро, 34328899",
				Company:   company,
			},
			wantTier:     courtcase.TierCritical,
			wantRole:     courtcase.RoleDefendant,
			wantCategory: courtcase.CategoryCriminal,
			wantCriminal: true,
		},
		{
			name: "dangerous state plaintiff raises high",
			input: Input{
				Category:  "Цивільне провадження",
				Plaintiff: "Обласна прокуратура",
				Defendant: "ТОВ Агро, 34328899",
				Company:   company,
			},
			wantTier:       courtcase.TierHigh,
			wantRole:       courtcase.RoleDefendant,
			wantCategory:   courtcase.CategoryCivil,
			wantDangerous:  true,
			wantNoteSubstr: "Держорган: прокуратура",
		},
		{
			name: "company as plaintiff lowers to low",
			input: Input{
				Category:  "Господарське судочинство",
				Plaintiff: "ТОВ Агро (код 034328899)",
				Defendant: "ТОВ Ромашка",
				Company:   company,
			},
			wantTier:     courtcase.TierLow,
			wantRole:     courtcase.RolePlaintiff,
			wantCategory: courtcase.CategoryCommercial,
		},
		{
			name: "default is medium defendant civil",
			input: Input{
				Company: company,
			},
			wantTier:       courtcase.TierMedium,
			wantRole:       courtcase.RoleDefendant,
			wantCategory:   courtcase.CategoryCivil,
			wantNoteSubstr: "Стандартне провадження",
		},
		{
			name: "administrative with unrelated parties",
			input: Input{
				Category:  "Адміністративне судочинство",
				Plaintiff: "ТОВ Інше",
				Defendant: "ФОП Хтось",
				Company:   company,
			},
			wantTier:     courtcase.TierMedium,
			wantRole:     courtcase.RoleParty,
			wantCategory: courtcase.CategoryAdministrative,
		},
		{
			name: "zero padding does not hide the defendant role",
			input: Input{
				Category:  "Цивільне провадження",
				Defendant: "ТОВ Агро, ЄДРПОУ 034328899",
				Company:   values.MustNewEDRPOU("34328899"),
			},
			wantTier: courtcase.TierMedium,
			wantRole: courtcase.RoleDefendant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.input)

			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantRole, got.Role)
			if tt.wantCategory != "" {
				assert.Equal(t, tt.wantCategory, got.Category)
			}
			assert.Equal(t, tt.wantCriminal, got.IsCriminal)
			assert.Equal(t, tt.wantDangerous, got.DangerousPlaintiff)
			if tt.wantNoteSubstr != "" {
				require.NotEmpty(t, got.Notes)
				found := false
				for _, note := range got.Notes {
					if note == tt.wantNoteSubstr {
						found = true
					}
				}
				assert.True(t, found, "notes %v should contain %q", got.Notes, tt.wantNoteSubstr)
			}
		})
	}
}

func TestClassifier_FirstDangerousKeywordWins(t *testing.T) {
	classifier := NewClassifier(Config{DangerousPlaintiffs: []string{"прокуратура", "податкова"}})

	got := classifier.Classify(Input{
		Category:  "Цивільне провадження",
		Plaintiff: "Прокуратура спільно з Податкова служба",
		Company:   values.MustNewEDRPOU("34328899"),
	})

	assert.Equal(t, courtcase.TierHigh, got.Tier)
	assert.Contains(t, got.Notes, "Держорган: прокуратура")
	assert.NotContains(t, got.Notes, "Держорган: податкова")
}

func TestClassifier_CustomKeywords(t *testing.T) {
	classifier := NewClassifier(Config{DangerousPlaintiffs: []string{" Митниця "}})

	got := classifier.Classify(Input{
		Plaintiff: "Одеська митниця",
		Company:   values.MustNewEDRPOU("34328899"),
	})

	assert.Equal(t, courtcase.TierHigh, got.Tier)
	assert.True(t, got.DangerousPlaintiff)
}

func TestClassifier_IsTotal(t *testing.T) {
	classifier := NewClassifier(Config{})

	got := classifier.Classify(Input{})

	assert.Equal(t, courtcase.TierMedium, got.Tier)
	assert.Equal(t, courtcase.RoleDefendant, got.Role)
	assert.NotEmpty(t, got.Notes)
}
