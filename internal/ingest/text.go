package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ahrav/go-assessor/internal/domain"
)

var (
	questionMarker = regexp.MustCompile(`(?i)\bQ:`)
	expectedMarker = regexp.MustCompile(`(?i)\bExpected:`)
	answerMarker   = regexp.MustCompile(`(?i)\bA:`)
)

// Word-count thresholds for free-text kinds.
const (
	essayMinWords      = 100
	longAnswerMinWords = 30
)

// ParseText extracts question/answer pairs from text of the form
//
//	Q: question text
//	Expected: optional reference answer
//	A: submitted answer
//
// Markers are case-insensitive. Blocks missing a question or an answer are
// skipped. Questions are numbered q1..qN in document order.
func ParseText(text string) []domain.Question {
	starts := questionMarker.FindAllStringIndex(text, -1)
	var out []domain.Question
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		q, ok := parseBlock(text[loc[1]:end])
		if !ok {
			continue
		}
		q.ID = fmt.Sprintf("q%d", len(out)+1)
		out = append(out, q)
	}
	return out
}

func parseBlock(block string) (domain.Question, bool) {
	a := answerMarker.FindStringIndex(block)
	if a == nil {
		return domain.Question{}, false
	}
	head, answer := block[:a[0]], strings.TrimSpace(block[a[1]:])

	text, reference := head, ""
	if e := expectedMarker.FindStringIndex(head); e != nil {
		text, reference = head[:e[0]], head[e[1]:]
	}
	text, reference = strings.TrimSpace(text), strings.TrimSpace(reference)
	if text == "" || answer == "" {
		return domain.Question{}, false
	}

	return domain.Question{
		Text:            text,
		ReferenceAnswer: reference,
		Answer:          answer,
		Kind:            DetectKind(text, answer),
		MaxScore:        domain.DefaultMaxScore,
	}, true
}

var (
	trueFalsePhrases = []string{"true or false", "t/f", "true/false"}
	trueFalseAnswers = []string{"true", "false", "t", "f"}
	choiceMarkers    = []string{"A)", "B)", "C)", "D)"}
	codeKeywords     = []string{"def ", "function", "class ", "import ", "return"}
)

// DetectKind classifies a question from its text and answer. The first
// matching rule wins: true/false phrasing or answer, lettered options,
// code keywords in the answer, then answer length.
func DetectKind(text, answer string) domain.QuestionKind {
	textLower := strings.ToLower(text)
	answerLower := strings.ToLower(strings.TrimSpace(answer))

	for _, p := range trueFalsePhrases {
		if strings.Contains(textLower, p) {
			return domain.KindTrueFalse
		}
	}
	for _, a := range trueFalseAnswers {
		if answerLower == a {
			return domain.KindTrueFalse
		}
	}
	for _, m := range choiceMarkers {
		if strings.Contains(text, m) {
			return domain.KindMultipleChoice
		}
	}
	for _, k := range codeKeywords {
		if strings.Contains(answerLower, k) {
			return domain.KindCoding
		}
	}

	switch words := len(strings.Fields(answer)); {
	case words > essayMinWords:
		return domain.KindEssay
	case words > longAnswerMinWords:
		return domain.KindLongAnswer
	default:
		return domain.KindShortAnswer
	}
}
