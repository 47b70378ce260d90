package scoring

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-assessor/internal/domain"
)

// SystemPrompt frames the model as an evaluator.
const SystemPrompt = "You are an expert educational evaluator. " +
	"Provide fair, objective, and constructive assessments."

var kindCriteria = map[domain.QuestionKind][]string{
	domain.KindTrueFalse: {
		"Answer must be exactly correct (True/False)",
		"No partial credit",
		"Confidence should be very high (0.9+) for clear answers",
	},
	domain.KindMultipleChoice: {
		"Answer must match the correct option",
		"No partial credit unless answer shows understanding",
		"High confidence for exact matches",
	},
	domain.KindShortAnswer: {
		"Check for key concepts and accuracy",
		"Award partial credit for partially correct answers",
		"Consider different phrasings of correct answers",
		"Confidence depends on clarity and completeness",
	},
	domain.KindLongAnswer: {
		"Assess depth of understanding",
		"Check for key points and examples",
		"Award partial credit generously",
		"Consider organization and clarity",
		"Lower confidence if answer is ambiguous",
	},
	domain.KindCoding: {
		"Check if code logic is correct",
		"Syntax errors should reduce score but not eliminate it",
		"Consider alternative solutions",
		"Award partial credit for correct approach",
		"High confidence only if code is clearly correct or incorrect",
	},
	domain.KindEssay: {
		"Assess argument quality and evidence",
		"Check for coherence and organization",
		"Consider depth of analysis",
		"This is subjective - use lower confidence (0.5-0.7)",
		"Recommend human review for final grading",
	},
}

// BuildPrompt renders the evaluation prompt for q. Unknown kinds fall back to
// short-answer criteria.
func BuildPrompt(q domain.Question) string {
	var b strings.Builder
	b.WriteString("You are an expert evaluator assessing student answers.\n\n")
	fmt.Fprintf(&b, "**Question Type**: %s\n", q.Kind)
	fmt.Fprintf(&b, "**Maximum Score**: %g\n\n", q.MaxScore)
	fmt.Fprintf(&b, "**Question**: %s\n\n", q.Text)
	if q.ReferenceAnswer != "" {
		fmt.Fprintf(&b, "**Expected Answer**: %s\n\n", q.ReferenceAnswer)
	}
	fmt.Fprintf(&b, "**Student's Answer**: %s\n\n", q.Answer)

	criteria, ok := kindCriteria[q.Kind]
	if !ok {
		criteria = kindCriteria[domain.KindShortAnswer]
	}
	b.WriteString("**Evaluation Criteria**:\n")
	for _, c := range criteria {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString(`
Please provide your evaluation in the following format:

SCORE: [number between 0 and maximum score]
CONFIDENCE: [number between 0.0 and 1.0]
IS_CORRECT: [true or false]
EXPLANATION: [detailed explanation of why you gave this score]

Be objective, fair, and provide constructive feedback.
`)
	return b.String()
}
