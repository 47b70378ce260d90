package engine

import (
	"github.com/ahrav/go-assessor/internal/domain"
)

// edge picks the node that follows from after its body produced s.
type edge func(s domain.SessionState) domain.Node

func always(n domain.Node) edge {
	return func(domain.SessionState) domain.Node { return n }
}

// edges is the transition table. HumanReview has no outgoing edge here:
// it suspends the run and only Resume moves it to Finalize.
var edges = map[domain.Node]edge{
	domain.NodeIngest: func(s domain.SessionState) domain.Node {
		if s.Error != "" || len(s.Questions) == 0 {
			return domain.NodeFailed
		}
		return domain.NodeEvaluate
	},
	domain.NodeEvaluate: always(domain.NodeCheckConfidence),
	domain.NodeCheckConfidence: func(s domain.SessionState) domain.Node {
		if len(s.NeedsReview) > 0 {
			return domain.NodeHumanReview
		}
		return domain.NodeFinalize
	},
	domain.NodeFinalize:       always(domain.NodeGenerateReport),
	domain.NodeGenerateReport: always(domain.NodeCompleted),
}

// statusOf maps a node to the status reported to callers.
func statusOf(n domain.Node) domain.RunStatus {
	switch n {
	case domain.NodeCompleted:
		return domain.RunCompleted
	case domain.NodeFailed:
		return domain.RunFailed
	case domain.NodeHumanReview:
		return domain.RunSuspended
	default:
		return domain.RunRunning
	}
}
