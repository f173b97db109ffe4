package export

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Metrics summarizes the privacy properties of a validated dataset.
type Metrics struct {
	TotalRecords          int  `json:"total_records"`
	EquivalenceClasses    int  `json:"equivalence_classes"`
	MinClassSize          int  `json:"min_class_size"`
	KAnonymity            int  `json:"k_anonymity"`
	PIISuppressed         bool `json:"pii_suppressed"`
	TimestampsGeneralized bool `json:"timestamps_generalized"`
	GDPRArticle89         bool `json:"gdpr_article_89_compliant"`
}

// ValidationReport is the outcome of privacy validation over a whole
// dataset.
type ValidationReport struct {
	Valid    bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Metrics  Metrics  `json:"metrics"`
}

// PrivacyValidationError rejects an export whose dataset failed privacy
// validation. Nothing is exported; there is no partial dataset.
type PrivacyValidationError struct {
	Report ValidationReport
}

func (e PrivacyValidationError) Error() string {
	if len(e.Report.Errors) == 0 {
		return "privacy validation failed"
	}
	return fmt.Sprintf("privacy validation failed: %s", strings.Join(e.Report.Errors, "; "))
}

// IsPrivacyValidation reports whether err is (or wraps) a
// PrivacyValidationError.
func IsPrivacyValidation(err error) bool {
	var pv PrivacyValidationError
	return errors.As(err, &pv)
}

// Validate checks the dataset for k-anonymity over the quasi-identifier
// pair (activity_id, week) and derives the GDPR Article 89 compliance
// flag. Records sharing the same quasi-identifier values form an
// equivalence class; every class must hold at least k records.
func Validate(d *Dataset, k int) ValidationReport {
	report := ValidationReport{
		Valid: true,
		Metrics: Metrics{
			TotalRecords:          d.TotalRecords(),
			KAnonymity:            k,
			PIISuppressed:         true,
			TimestampsGeneralized: true,
		},
	}

	classes := make(map[string]int)
	for _, key := range d.quasiKeys() {
		classes[key]++
	}
	report.Metrics.EquivalenceClasses = len(classes)

	minSize := 0
	var violating []string
	for key, size := range classes {
		if minSize == 0 || size < minSize {
			minSize = size
		}
		if size < k {
			violating = append(violating, key)
		}
	}
	report.Metrics.MinClassSize = minSize

	if len(violating) > 0 {
		sort.Strings(violating)
		report.Valid = false
		report.Errors = append(report.Errors, fmt.Sprintf(
			"k-anonymity violated: %d equivalence class(es) smaller than k=%d: %s",
			len(violating), k, strings.Join(violating, ", ")))
	}

	if k < 2 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("k=%d offers no grouping protection; consider k>=5", k))
	}

	// Article 89 calls for appropriate safeguards on research processing:
	// pseudonymization, data minimization, and no directly identifying
	// fields. The exporter guarantees the first two by construction, so
	// compliance reduces to the dataset actually passing validation with
	// a protective k.
	report.Metrics.GDPRArticle89 = report.Valid && k >= 2 &&
		report.Metrics.PIISuppressed && report.Metrics.TimestampsGeneralized

	return report
}
