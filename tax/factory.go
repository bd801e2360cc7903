/*
factory.go - YAML to Table conversion

PURPOSE:
  Tax constants change every year (sometimes twice). They are data, not
  code: tables.yaml ships the defaults embedded in the binary and an
  operator can point the server at a replacement file.

YAML SCHEMA:
  tables:
    - name: "2024"
      effective_from: "2024-02-01"
      minimum_wage: "1412.00"
      inss:
        ceiling: "908.85"
        brackets:
          - {up_to: "1412.00", rate: "0.075", deduction: "0"}
      irrf:
        dependent_deduction: "189.59"
        simplified_deduction: "564.80"
        brackets:
          - {up_to: "2259.20", rate: "0", deduction: "0"}
          - {rate: "0.275", deduction: "896.00"}   # no up_to: unbounded
      family_allowance: {quota: "62.04", income_ceiling: "1819.26"}
      fgts: {rate: "0.08", fine_rate: "0.40"}

  Amounts are quoted so they decode through decimal's text unmarshaler
  without a float64 round trip.

SEE ALSO:
  - table.go: Table, Registry and validation
*/
package tax

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/folha/payroll-engine/generic"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

type tablesFile struct {
	Tables []tableYAML `yaml:"tables"`
}

type tableYAML struct {
	Name            string               `yaml:"name"`
	EffectiveFrom   string               `yaml:"effective_from"`
	MinimumWage     decimal.Decimal      `yaml:"minimum_wage"`
	INSS            INSSRules            `yaml:"inss"`
	IRRF            IRRFRules            `yaml:"irrf"`
	FamilyAllowance FamilyAllowanceRules `yaml:"family_allowance"`
	FGTS            FGTSRules            `yaml:"fgts"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseTables decodes a YAML document into a validated Registry.
func ParseTables(data []byte) (*Registry, error) {
	var file tablesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tax tables: %w", err)
	}
	if len(file.Tables) == 0 {
		return nil, generic.Invalid("tables", "document defines no tables")
	}

	tables := make([]Table, 0, len(file.Tables))
	for _, ty := range file.Tables {
		effective, err := generic.ParseTimePoint(ty.EffectiveFrom)
		if err != nil {
			return nil, generic.Invalid("effective_from", "table %q: %v", ty.Name, err)
		}
		tables = append(tables, Table{
			Name:            ty.Name,
			EffectiveFrom:   effective,
			INSS:            ty.INSS,
			IRRF:            ty.IRRF,
			MinimumWage:     ty.MinimumWage,
			FamilyAllowance: ty.FamilyAllowance,
			FGTS:            ty.FGTS,
		})
	}
	return NewRegistry(tables...)
}

// LoadFile reads tables from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tax tables: %w", err)
	}
	return ParseTables(data)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded tables.yaml.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := ParseTables(defaultTablesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded tax tables are invalid: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}
