// Package verdict implements the deterministic verdict rule engine.
//
// The legal outcome is a pure function of the assessed proof score, the case
// type, and the count of persisted facts; no model is consulted. The result
// is computed on demand and never stored, so it is always re-derivable from
// current inputs.
package verdict

import (
	"fmt"
	"strings"
)

// Legal proof thresholds.
const (
	// CriminalThreshold is "beyond reasonable doubt".
	CriminalThreshold = 0.75

	// CivilThreshold is "preponderance of evidence".
	CivilThreshold = 0.50
)

// Verdict is the decision outcome.
type Verdict string

const (
	Guilty    Verdict = "GUILTY"
	NotGuilty Verdict = "NOT GUILTY"
)

// InvalidCaseTypeError reports a case type outside {criminal, civil}.
type InvalidCaseTypeError struct {
	CaseType string
}

func (e *InvalidCaseTypeError) Error() string {
	return fmt.Sprintf("invalid case type %q: must be 'criminal' or 'civil'", e.CaseType)
}

// Result is the explainable verdict. Transient by contract: computed on
// demand, never persisted.
type Result struct {
	Verdict     Verdict `json:"verdict"`
	Threshold   float64 `json:"threshold"`
	Score       float64 `json:"score"`
	FactsCount  int     `json:"facts_count"`
	Explanation string  `json:"explanation"`
}

// threshold resolves the proof threshold for a case type. Case-insensitive.
func threshold(caseType string) (float64, error) {
	switch strings.ToLower(caseType) {
	case "criminal":
		return CriminalThreshold, nil
	case "civil":
		return CivilThreshold, nil
	}
	return 0, &InvalidCaseTypeError{CaseType: caseType}
}

// Decide returns GUILTY iff score meets or exceeds the threshold for the
// case type.
func Decide(score float64, caseType string) (Verdict, error) {
	t, err := threshold(caseType)
	if err != nil {
		return "", err
	}
	if score >= t {
		return Guilty, nil
	}
	return NotGuilty, nil
}

// DecideWithReason wraps Decide with the resolved threshold, the input score,
// the persisted fact count, and a fixed-template explanation.
func DecideWithReason(score float64, caseType string, factsCount int) (*Result, error) {
	v, err := Decide(score, caseType)
	if err != nil {
		return nil, err
	}
	t, _ := threshold(caseType)

	explanation := fmt.Sprintf(
		"Case type: %s. Required threshold: %v. Assessed degree of proof: %v. Facts considered: %d. ",
		strings.ToUpper(caseType), t, score, factsCount,
	)
	if v == Guilty {
		explanation += "The degree of proof meets or exceeds the legal threshold."
	} else {
		explanation += "The degree of proof does not meet the legal threshold."
	}

	return &Result{
		Verdict:     v,
		Threshold:   t,
		Score:       score,
		FactsCount:  factsCount,
		Explanation: explanation,
	}, nil
}
