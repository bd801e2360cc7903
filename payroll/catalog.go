package payroll

import (
	"sort"

	"github.com/folha/payroll-engine/generic"
)

// =============================================================================
// STANDARD CODES
// =============================================================================

const (
	CodeBaseSalary        = "001"
	CodeSalaryBalance     = "002"
	CodeOvertime          = "010"
	CodeNightShift        = "011"
	CodeHazard            = "012"
	CodeUnhealthyLow      = "013"
	CodeUnhealthyMedium   = "014"
	CodeUnhealthyHigh     = "015"
	CodeFamilyAllowance   = "020"
	CodeVacationPay       = "030"
	CodeVacationBonus     = "031"
	CodeVacationCashOut   = "032"
	CodeCashOutBonus      = "033"
	CodeThirteenthAdvance = "034"
	CodeThirteenth        = "040"
	CodeThirteenthFirst   = "041"
	CodeThirteenthPaid    = "042"
	CodeNoticePay         = "050"
	CodeProportionalVac   = "051"
	CodeProportionalBonus = "052"
	CodeProportional13th  = "053"
	CodeFGTSFine          = "054"
	CodeTransportDiscount = "201"
	CodeSalaryAdvance     = "202"
	CodeINSS              = "901"
	CodeIRRF              = "902"
	CodeINSSThirteenth    = "903"
	CodeIRRFThirteenth    = "904"
)

// earning builds an earning item. Flags: INSS, IRRF, FGTS.
func earning(code, description string, inss, irrf, fgts bool, rule RuleKind) PayItem {
	return PayItem{Code: code, Description: description, Category: CategoryEarning,
		INSSBase: inss, IRRFBase: irrf, FGTSBase: fgts, Rule: rule}
}

func deduction(code, description string, rule RuleKind) PayItem {
	return PayItem{Code: code, Description: description, Category: CategoryDeduction, Rule: rule}
}

var (
	ItemBaseSalary        = earning(CodeBaseSalary, "Salário base", true, true, true, RuleNone)
	ItemSalaryBalance     = earning(CodeSalaryBalance, "Saldo de salário", true, true, true, RuleNone)
	ItemOvertime          = earning(CodeOvertime, "Horas extras 50%", true, true, true, RuleOvertime50)
	ItemNightShift        = earning(CodeNightShift, "Adicional noturno 20%", true, true, true, RuleNightShift20)
	ItemHazard            = earning(CodeHazard, "Adicional de periculosidade 30%", true, true, true, RuleHazard30)
	ItemUnhealthyLow      = earning(CodeUnhealthyLow, "Insalubridade grau mínimo 10%", true, true, true, RuleUnhealthy10)
	ItemUnhealthyMedium   = earning(CodeUnhealthyMedium, "Insalubridade grau médio 20%", true, true, true, RuleUnhealthy20)
	ItemUnhealthyHigh     = earning(CodeUnhealthyHigh, "Insalubridade grau máximo 40%", true, true, true, RuleUnhealthy40)
	ItemFamilyAllowance   = earning(CodeFamilyAllowance, "Salário-família", false, false, false, RuleFamilyAllowance)
	ItemVacationPay       = earning(CodeVacationPay, "Férias", true, true, true, RuleNone)
	ItemVacationBonus     = earning(CodeVacationBonus, "1/3 constitucional de férias", false, true, true, RuleNone)
	ItemVacationCashOut   = earning(CodeVacationCashOut, "Abono pecuniário", false, false, false, RuleNone)
	ItemCashOutBonus      = earning(CodeCashOutBonus, "1/3 sobre abono pecuniário", false, false, false, RuleNone)
	ItemThirteenthAdvance = earning(CodeThirteenthAdvance, "Adiantamento 13º salário", false, false, true, RuleNone)
	ItemThirteenth        = earning(CodeThirteenth, "13º salário", true, true, true, RuleNone)
	ItemThirteenthFirst   = earning(CodeThirteenthFirst, "13º salário 1ª parcela", false, false, true, RuleNone)
	ItemThirteenthPaid    = deduction(CodeThirteenthPaid, "Adiantamento 13º salário pago", RuleNone)
	ItemNoticePay         = earning(CodeNoticePay, "Aviso prévio indenizado", false, false, true, RuleNone)
	ItemProportionalVac   = earning(CodeProportionalVac, "Férias proporcionais", false, false, false, RuleNone)
	ItemProportionalBonus = earning(CodeProportionalBonus, "1/3 férias proporcionais", false, false, false, RuleNone)
	ItemProportional13th  = earning(CodeProportional13th, "13º salário proporcional", true, true, true, RuleNone)
	ItemFGTSFine          = earning(CodeFGTSFine, "Multa FGTS", false, false, false, RuleNone)
	ItemTransportDiscount = deduction(CodeTransportDiscount, "Desconto vale-transporte 6%", RuleTransportDiscount)
	ItemSalaryAdvance     = deduction(CodeSalaryAdvance, "Adiantamento salarial", RuleNone)
	ItemINSS              = deduction(CodeINSS, "INSS", RuleStatutoryINSS)
	ItemIRRF              = deduction(CodeIRRF, "IRRF", RuleStatutoryIRRF)
	ItemINSSThirteenth    = deduction(CodeINSSThirteenth, "INSS sobre 13º salário", RuleStatutoryINSS)
	ItemIRRFThirteenth    = deduction(CodeIRRFThirteenth, "IRRF sobre 13º salário", RuleStatutoryIRRF)
)

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is a set of pay items keyed by code.
type Catalog struct {
	items map[string]PayItem
}

// NewCatalog builds a catalog. Items with an empty Rule are classified once
// from their code and description; later items replace earlier ones.
func NewCatalog(items ...PayItem) (*Catalog, error) {
	c := &Catalog{items: make(map[string]PayItem, len(items))}
	for _, item := range items {
		if err := c.Add(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultCatalog returns the standard rubricas.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(StandardItems()...)
	return c
}

// StandardItems lists the built-in rubricas in code order.
func StandardItems() []PayItem {
	return []PayItem{
		ItemBaseSalary, ItemSalaryBalance, ItemOvertime, ItemNightShift, ItemHazard,
		ItemUnhealthyLow, ItemUnhealthyMedium, ItemUnhealthyHigh, ItemFamilyAllowance,
		ItemVacationPay, ItemVacationBonus, ItemVacationCashOut, ItemCashOutBonus,
		ItemThirteenthAdvance, ItemThirteenth, ItemThirteenthFirst, ItemThirteenthPaid,
		ItemNoticePay, ItemProportionalVac, ItemProportionalBonus, ItemProportional13th,
		ItemFGTSFine, ItemTransportDiscount, ItemSalaryAdvance,
		ItemINSS, ItemIRRF, ItemINSSThirteenth, ItemIRRFThirteenth,
	}
}

// Prepare validates an item and fills in its rule kind when missing.
func Prepare(item PayItem) (PayItem, error) {
	if item.Code == "" {
		return PayItem{}, generic.Invalid("code", "is required")
	}
	if _, err := ParseCategory(string(item.Category)); err != nil {
		return PayItem{}, err
	}
	if item.Rule == "" {
		item.Rule = ClassifyRule(item.Code, item.Description)
	}
	if _, err := ParseRuleKind(string(item.Rule)); err != nil {
		return PayItem{}, err
	}
	return item, nil
}

// Add inserts or replaces an item.
func (c *Catalog) Add(item PayItem) error {
	prepared, err := Prepare(item)
	if err != nil {
		return err
	}
	c.items[prepared.Code] = prepared
	return nil
}

// Get looks an item up by code.
func (c *Catalog) Get(code string) (PayItem, bool) {
	item, ok := c.items[code]
	return item, ok
}

// Items returns every item sorted by code.
func (c *Catalog) Items() []PayItem {
	out := make([]PayItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
