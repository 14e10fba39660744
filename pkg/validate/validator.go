// Package validate inspects datasets before an import is attempted.
package validate

import (
	"fmt"
	"strings"

	"github.com/TFMV/stevedore/pkg/destinations"
	"github.com/TFMV/stevedore/pkg/models"
)

// Default advisory thresholds.
const (
	DefaultMaxColumnsWarn = 100
	DefaultMaxRowsWarn    = 100000
)

// Options configures a Validator.
type Options struct {
	// MaxColumnsWarn triggers the wide-dataset warning. Zero means the
	// default of 100.
	MaxColumnsWarn int
	// MaxRowsWarn triggers the large-dataset warning. Zero means the
	// default of 100000.
	MaxRowsWarn int
	// Constraints holds the destination's column-naming rules. Empty
	// constraints disable the naming check.
	Constraints destinations.Constraints
}

// Validator produces a ValidationReport for a dataset. It never mutates
// the dataset and never fails: every outcome, including an empty dataset,
// is expressed in the report.
type Validator struct {
	opts Options
}

// New creates a Validator with the given options.
func New(opts Options) *Validator {
	if opts.MaxColumnsWarn <= 0 {
		opts.MaxColumnsWarn = DefaultMaxColumnsWarn
	}
	if opts.MaxRowsWarn <= 0 {
		opts.MaxRowsWarn = DefaultMaxRowsWarn
	}
	return &Validator{opts: opts}
}

// Validate evaluates all rules against the dataset. An empty dataset is
// the only fatal condition; everything else is advisory. Stats are always
// populated, including for the empty set.
func (v *Validator) Validate(ds *models.Dataset) models.ValidationReport {
	report := models.ValidationReport{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
		Stats:    ds.Stats(),
	}

	if ds.Len() == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "dataset is empty")
		return report
	}

	if report.Stats.TotalColumns > v.opts.MaxColumnsWarn {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("large number of columns detected (>%d)", v.opts.MaxColumnsWarn))
	}

	if report.Stats.TotalRows > v.opts.MaxRowsWarn {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("large dataset detected (>%d rows)", v.opts.MaxRowsWarn))
	}

	if invalid := v.invalidColumnNames(ds.Columns()); len(invalid) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("columns with destination-incompatible names: %s", strings.Join(invalid, ", ")))
	}

	return report
}

// invalidColumnNames returns the column names violating the destination's
// naming constraints, in the dataset's column order.
func (v *Validator) invalidColumnNames(columns []string) []string {
	var invalid []string
	for _, col := range columns {
		if v.isInvalidName(col) {
			invalid = append(invalid, col)
		}
	}
	return invalid
}

func (v *Validator) isInvalidName(col string) bool {
	for _, prefix := range v.opts.Constraints.ReservedNamePrefixes {
		if prefix != "" && strings.HasPrefix(col, prefix) {
			return true
		}
	}
	for _, ch := range v.opts.Constraints.ReservedNameChars {
		if ch != "" && strings.Contains(col, ch) {
			return true
		}
	}
	return false
}
