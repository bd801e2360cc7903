package payroll

import (
	"strings"
	"unicode"

	"github.com/folha/payroll-engine/generic"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// RULE KINDS - Closed set of automatic calculations
// =============================================================================

// RuleKind selects the closed-form formula, if any, attached to a pay item.
// It is stored on the item so the resolver never inspects free text.
type RuleKind string

const (
	RuleNone              RuleKind = "none"
	RuleFamilyAllowance   RuleKind = "family_allowance"
	RuleTransportDiscount RuleKind = "transport_discount"
	RuleOvertime50        RuleKind = "overtime_50"
	RuleNightShift20      RuleKind = "night_shift_20"
	RuleHazard30          RuleKind = "hazard_30"
	RuleUnhealthy10       RuleKind = "unhealthy_10"
	RuleUnhealthy20       RuleKind = "unhealthy_20"
	RuleUnhealthy40       RuleKind = "unhealthy_40"

	// Reserved for the computed withholdings. Input entries carrying these
	// are ignored by the aggregators to avoid double counting.
	RuleStatutoryINSS RuleKind = "statutory_inss"
	RuleStatutoryIRRF RuleKind = "statutory_irrf"
)

var ruleKinds = []RuleKind{
	RuleNone, RuleFamilyAllowance, RuleTransportDiscount, RuleOvertime50,
	RuleNightShift20, RuleHazard30, RuleUnhealthy10, RuleUnhealthy20,
	RuleUnhealthy40, RuleStatutoryINSS, RuleStatutoryIRRF,
}

// RuleKinds lists every known kind.
func RuleKinds() []RuleKind {
	out := make([]RuleKind, len(ruleKinds))
	copy(out, ruleKinds)
	return out
}

// ParseRuleKind validates a stored rule kind. The empty string is RuleNone.
func ParseRuleKind(s string) (RuleKind, error) {
	if s == "" {
		return RuleNone, nil
	}
	for _, k := range ruleKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", generic.Invalid("rule", "unknown rule kind %q", s)
}

func (k RuleKind) IsStatutory() bool {
	return k == RuleStatutoryINSS || k == RuleStatutoryIRRF
}

// IsAutomatic reports whether the resolver can compute the amount.
func (k RuleKind) IsAutomatic() bool {
	switch k {
	case RuleNone, RuleStatutoryINSS, RuleStatutoryIRRF, "":
		return false
	}
	return true
}

// =============================================================================
// LEGACY CLASSIFICATION
// =============================================================================

// codeRules maps the well-known legacy codes to their rule.
var codeRules = map[string]RuleKind{
	CodeOvertime:          RuleOvertime50,
	CodeNightShift:        RuleNightShift20,
	CodeHazard:            RuleHazard30,
	CodeUnhealthyLow:      RuleUnhealthy10,
	CodeUnhealthyMedium:   RuleUnhealthy20,
	CodeUnhealthyHigh:     RuleUnhealthy40,
	CodeFamilyAllowance:   RuleFamilyAllowance,
	CodeTransportDiscount: RuleTransportDiscount,
	CodeINSS:              RuleStatutoryINSS,
	CodeINSSThirteenth:    RuleStatutoryINSS,
	CodeIRRF:              RuleStatutoryIRRF,
	CodeIRRFThirteenth:    RuleStatutoryIRRF,
}

// ClassifyRule derives a RuleKind from a legacy code and description.
// It runs once, when an item enters the catalog without an explicit rule.
// Codes win over descriptions; descriptions match accent- and case-insensitively.
func ClassifyRule(code, description string) RuleKind {
	if k, ok := codeRules[strings.TrimSpace(code)]; ok {
		return k
	}

	d := fold(description)
	switch {
	case strings.Contains(d, "salario familia"):
		return RuleFamilyAllowance
	case strings.Contains(d, "vale transporte"):
		return RuleTransportDiscount
	case strings.Contains(d, "hora extra"), strings.Contains(d, "horas extras"):
		return RuleOvertime50
	case strings.Contains(d, "noturno"):
		return RuleNightShift20
	case strings.Contains(d, "periculosidade"):
		return RuleHazard30
	case strings.Contains(d, "insalubridade"):
		switch {
		case strings.Contains(d, "40"), strings.Contains(d, "maximo"):
			return RuleUnhealthy40
		case strings.Contains(d, "20"), strings.Contains(d, "medio"):
			return RuleUnhealthy20
		default:
			return RuleUnhealthy10
		}
	case strings.Contains(d, "inss"):
		return RuleStatutoryINSS
	case strings.Contains(d, "irrf"), strings.Contains(d, "imposto de renda"):
		return RuleStatutoryIRRF
	}
	return RuleNone
}

// fold lowercases s, strips diacritics and turns separators into spaces.
// Transformer chains keep state, so each call builds its own.
func fold(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(out)
	return strings.Join(strings.Fields(out), " ")
}
