// Package plan определяет тариф и срок действия покупки по текстовому названию
// предложения или продукта. Функции пакета чистые и не обращаются к хранилищу.
package plan

import (
	"fmt"
	"strings"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

const (
	// TrialDays - фиксированная длительность пробного периода.
	TrialDays = 7

	monthDays    = 30
	quarterDays  = 90
	semesterDays = 180
	yearDays     = 365

	// порог в минорных единицах (100.00), начиная с которого покупка без названия считается ouro
	ouroAmountThreshold = 100 * 100
)

var (
	ouroKeywords   = []string{"ouro", "gold", "premium"}
	bronzeKeywords = []string{"bronze", "basico", "basic"}
	trialKeywords  = []string{"trial"}

	// порядок важен: "semestral" содержит "mes"; само слово "mes" проверяет isMonthWord
	durationRules = []struct {
		keywords []string
		days     int
	}{
		{keywords: []string{"anual", "annual", "yearly", "year", "12meses"}, days: yearDays},
		{keywords: []string{"semestral", "semestre", "semester", "6meses"}, days: semesterDays},
		{keywords: []string{"trimestral", "trimestre", "quarterly", "quarter", "3meses"}, days: quarterDays},
		{keywords: []string{"mensal", "monthly", "month", "1mes"}, days: monthDays},
	}

	accentFolder = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "ô", "o", "õ", "o",
		"ú", "u",
		"ç", "c",
	)
)

// Classify возвращает тариф и длительность в днях для покупки.
//
// Предпочитается название предложения, при его отсутствии - название продукта.
// Если ни одно ключевое слово не найдено, тариф выбирается по сумме:
// от 100.00 и выше - ouro, иначе bronze. Функция тотальна и не возвращает ошибок.
func Classify(offerLabel, productLabel string, amountMinorUnits int64) (models.PlanTier, int) {
	raw := offerLabel
	label := normalize(offerLabel)
	if label == "" {
		raw = productLabel
		label = normalize(productLabel)
	}

	var tier models.PlanTier
	switch {
	case containsAny(label, ouroKeywords):
		tier = models.PlanOuro
	case containsAny(label, bronzeKeywords):
		tier = models.PlanBronze
	case containsAny(label, trialKeywords):
		return models.PlanTrial, TrialDays
	case amountMinorUnits >= ouroAmountThreshold:
		tier = models.PlanOuro
	default:
		tier = models.PlanBronze
	}

	for _, rule := range durationRules {
		if containsAny(label, rule.keywords) {
			return tier, rule.days
		}
	}
	if isMonthWord(raw) {
		return tier, monthDays
	}

	if tier == models.PlanOuro {
		return tier, yearDays
	}
	return tier, monthDays
}

// DurationLabel возвращает человекочитаемую длительность для журнала продаж.
func DurationLabel(days int) string {
	switch days {
	case monthDays:
		return "1 mês"
	case quarterDays:
		return "3 meses"
	case semesterDays:
		return "6 meses"
	case yearDays:
		return "1 ano"
	default:
		return fmt.Sprintf("%d dias", days)
	}
}

func normalize(label string) string {
	return accentFolder.Replace(strings.Join(strings.Fields(strings.ToLower(label)), ""))
}

// isMonthWord ищет "mês" в любом месте или "mes" отдельным словом, но не внутри других слов.
func isMonthWord(label string) bool {
	lower := strings.ToLower(label)
	if strings.Contains(strings.Join(strings.Fields(lower), ""), "mês") {
		return true
	}
	for _, field := range strings.Fields(lower) {
		if field == "mes" {
			return true
		}
	}
	return false
}

func containsAny(label string, keywords []string) bool {
	if label == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}
