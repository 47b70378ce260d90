package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reply field markers.
const (
	markerScore       = "SCORE:"
	markerConfidence  = "CONFIDENCE:"
	markerCorrect     = "IS_CORRECT:"
	markerExplanation = "EXPLANATION:"
)

// Confidence values used when the reply omits or garbles fields.
const (
	defaultConfidence    = 0.5
	parseErrorConfidence = 0.3
)

// Reply is the structured content of a model evaluation.
type Reply struct {
	Score       float64
	Confidence  float64
	Correct     bool
	Explanation string
}

// ParseReply extracts the SCORE, CONFIDENCE, IS_CORRECT and EXPLANATION
// fields from a model reply. Missing fields keep their defaults. A field that
// is present but not numeric drops confidence to 0.3 and records the error in
// the explanation; it is not returned as an error so the evaluation is still
// recorded and routed to review. Score is clamped to [0, maxScore] and
// confidence to [0, 1].
func ParseReply(content string, maxScore float64) Reply {
	r := Reply{Confidence: defaultConfidence, Explanation: content}

	if err := parseFields(content, maxScore, &r); err != nil {
		r.Explanation = fmt.Sprintf("Parsing error: %v\n\nRaw response:\n%s", err, content)
		r.Confidence = parseErrorConfidence
	}
	return r
}

func parseFields(content string, maxScore float64, r *Reply) error {
	if v, ok := fieldValue(content, markerScore); ok {
		score, err := firstFloat(v)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		r.Score = min(max(score, 0), maxScore)
	}

	if v, ok := fieldValue(content, markerConfidence); ok {
		conf, err := firstFloat(v)
		if err != nil {
			return fmt.Errorf("confidence: %w", err)
		}
		r.Confidence = min(max(conf, 0), 1)
	}

	if v, ok := fieldValue(content, markerCorrect); ok {
		r.Correct = strings.HasPrefix(strings.ToLower(v), "true")
	}

	if i := strings.Index(content, markerExplanation); i >= 0 {
		r.Explanation = strings.TrimSpace(content[i+len(markerExplanation):])
	}
	return nil
}

// fieldValue returns the trimmed remainder of the first line containing marker.
func fieldValue(content, marker string) (string, bool) {
	for line := range strings.SplitSeq(content, "\n") {
		if _, after, found := strings.Cut(line, marker); found {
			return strings.TrimSpace(after), true
		}
	}
	return "", false
}

func firstFloat(v string) (float64, error) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, errors.New("missing value")
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", fields[0])
	}
	return f, nil
}
