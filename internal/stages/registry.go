package stages

import (
	"fmt"

	"gaplens/internal/core"
	"gaplens/internal/dataset"
)

// Build resolves configured stage names into stage instances, preserving
// order. Unknown names fail loudly at startup rather than mid-session.
func Build(names []string, provider dataset.Provider) ([]core.Stage, error) {
	built := make([]core.Stage, 0, len(names))
	for _, name := range names {
		switch name {
		case "perception":
			built = append(built, NewPerception())
		case "analysis":
			built = append(built, NewAnalysis(provider))
		case "decision":
			built = append(built, NewDecision(provider))
		default:
			return nil, fmt.Errorf("unknown stage: %s", name)
		}
	}
	return built, nil
}
