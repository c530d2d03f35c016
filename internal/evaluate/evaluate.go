package evaluate

import (
	"fmt"

	"vcheck-go/internal/kits"
)

// Classification is the user-facing state of one test panel.
type Classification string

const (
	Positive Classification = "positive"
	Negative Classification = "negative"
	Invalid  Classification = "invalid"
)

// ErrLengthMismatch is returned when the interpretation array does not line
// up with the kit's analyte list. Truncating or padding would mislabel
// analytes, so evaluation refuses instead.
var ErrLengthMismatch = fmt.Errorf("result array length does not match kit analyte count")

// PanelResult pairs an analyte name with its classification.
type PanelResult struct {
	Position int            `json:"position"`
	Analyte  string         `json:"analyte"`
	Result   Classification `json:"result"`
}

// Outcome is the evaluated result of one interpretation.
type Outcome struct {
	Results []PanelResult  `json:"results"`
	Summary Classification `json:"summary"`
}

// Classify maps one raw numeric code to its classification.
// The canonical convention: 1 is positive, -1 is negative, everything else
// (0 and out-of-range values) is invalid.
func Classify(value int) Classification {
	switch value {
	case 1:
		return Positive
	case -1:
		return Negative
	default:
		return Invalid
	}
}

// Evaluate pairs each raw value with the analyte at the same position and
// derives the summary classification.
func Evaluate(raw []int, profile kits.Profile) (Outcome, error) {
	if len(raw) != len(profile.Analytes) {
		return Outcome{}, fmt.Errorf("%w: got %d values for %d analytes (%s kit %d)",
			ErrLengthMismatch, len(raw), len(profile.Analytes), profile.TestType, profile.KitID)
	}

	outcome := Outcome{
		Results: make([]PanelResult, len(raw)),
	}
	for i, value := range raw {
		outcome.Results[i] = PanelResult{
			Position: i,
			Analyte:  profile.Analytes[i],
			Result:   Classify(value),
		}
	}
	outcome.Summary = Summarize(outcome.Results)
	return outcome, nil
}

// Summarize derives the overall classification. Invalid only wins when every
// panel is invalid; a single positive among invalids still yields positive.
func Summarize(results []PanelResult) Classification {
	if len(results) == 0 {
		return Negative
	}

	allInvalid := true
	anyPositive := false
	for _, r := range results {
		if r.Result != Invalid {
			allInvalid = false
		}
		if r.Result == Positive {
			anyPositive = true
		}
	}

	if allInvalid {
		return Invalid
	}
	if anyPositive {
		return Positive
	}
	return Negative
}
