package report

import (
	"fmt"
	"strings"
)

// Markdown renders r as a Markdown document.
func Markdown(r Report) string {
	var b strings.Builder
	b.WriteString("# Assessment Report\n\n")
	if r.Document != "" {
		fmt.Fprintf(&b, "**Document**: %s\n\n", r.Document)
	}
	fmt.Fprintf(&b, "**Generated**: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", r.Summary)

	if len(r.Strengths) > 0 {
		b.WriteString("## Strengths\n\n")
		for _, s := range r.Strengths {
			fmt.Fprintf(&b, "### %s\n%s\n\n", s.Topic, s.Description)
		}
	}

	if len(r.Weaknesses) > 0 {
		b.WriteString("## Areas for Improvement\n\n")
		for _, w := range r.Weaknesses {
			fmt.Fprintf(&b, "### %s\n%s\n\n", w.Topic, w.Description)
		}
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for i, rec := range r.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
		b.WriteString("\n")
	}

	if len(r.Results) > 0 {
		b.WriteString("## Results\n\n")
		b.WriteString("| Question | Score | Confidence | Reviewed |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, res := range r.Results {
			score := res.Score
			if res.OverrideScore != nil {
				score = *res.OverrideScore
			}
			reviewed := "no"
			if res.HumanReviewed {
				reviewed = "yes"
			}
			fmt.Fprintf(&b, "| %s | %.1f/%.1f | %.2f | %s |\n",
				res.QuestionID, score, res.MaxScore, res.Confidence, reviewed)
		}
	}
	return b.String()
}
