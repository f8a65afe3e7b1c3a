package monitoring

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// formatNotification renders the Telegram HTML text for a classified case.
// Layout is intentionally minimal; the chat presentation layer proper lives
// outside this service.
func formatNotification(
	event courtcase.RegistryEvent,
	item courtcase.CaseItem,
	number values.CaseNumber,
	assessment courtcase.Assessment,
	companyName string,
	isKnown bool,
	viaCaseSub bool,
) string {
	var b strings.Builder

	b.WriteString(assessment.Tier.Emoji())
	if viaCaseSub {
		b.WriteString(" <b>Оновлення у справі</b>\n")
	} else if isKnown {
		b.WriteString(" <b>Нова подія у відомій справі</b>\n")
	} else {
		b.WriteString(" <b>Нова судова справа</b>\n")
	}

	fmt.Fprintf(&b, "Справа: <code>%s</code>\n", html.EscapeString(number.String()))
	if companyName != "" {
		fmt.Fprintf(&b, "Компанія: %s (%s)\n", html.EscapeString(companyName), event.EntityCode.String())
	} else {
		fmt.Fprintf(&b, "ЄДРПОУ: %s\n", event.EntityCode.String())
	}
	if item.CourtName != "" {
		fmt.Fprintf(&b, "Суд: %s\n", html.EscapeString(item.CourtName))
	}
	if item.Category != "" {
		fmt.Fprintf(&b, "Форма: %s\n", html.EscapeString(item.Category))
	}

	fmt.Fprintf(&b, "Рівень загрози: <b>%s</b>\n", assessment.Tier)
	for _, note := range assessment.Notes {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(note))
	}

	if item.DocumentLink != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">Документ</a>", item.DocumentLink)
	}

	return strings.TrimRight(b.String(), "\n")
}

// payloadHash fingerprints the case payload so later cycles can detect the
// same dedup key being re-notified with materially different content.
// Informational only, never enforced.
func payloadHash(item courtcase.CaseItem, number values.CaseNumber) string {
	payload := struct {
		CaseNumber string `json:"case_number"`
		CourtName  string `json:"court_name"`
		Category   string `json:"category"`
		Link       string `json:"link"`
	}{
		CaseNumber: number.String(),
		CourtName:  item.CourtName,
		Category:   item.Category,
		Link:       item.DocumentLink,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}
