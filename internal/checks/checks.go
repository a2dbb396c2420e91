package checks

import (
	"fmt"
	"sort"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

// CheckResult holds the result of a single check run.
type CheckResult struct {
	Name     string
	Skipped  bool
	Findings []Finding
}

// Errors counts the error findings.
func (r CheckResult) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// RunAll runs every enabled check against t. It returns ErrFindings when
// any check reported an error finding, and a CheckError when a check could
// not run at all.
func RunAll(t *construct.Template, settings map[string]any) ([]CheckResult, error) {
	var results []CheckResult
	errs := 0

	for _, c := range All() {
		meta := c.Metadata()
		if !Enabled(meta.Name, settings) {
			results = append(results, CheckResult{Name: meta.DisplayName, Skipped: true})
			continue
		}

		findings, err := c.Run(t)
		if err != nil {
			return results, &CheckError{Check: meta.DisplayName, Err: err}
		}
		for i := range findings {
			findings[i].Check = meta.Name
		}
		sort.SliceStable(findings, func(i, j int) bool { return findings[i].Resource < findings[j].Resource })

		res := CheckResult{Name: meta.DisplayName, Findings: findings}
		errs += res.Errors()
		results = append(results, res)
	}

	if errs > 0 {
		return results, fmt.Errorf("%w: %d error(s)", ErrFindings, errs)
	}
	return results, nil
}
