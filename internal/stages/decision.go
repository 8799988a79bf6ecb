package stages

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"gaplens/internal/core"
	"gaplens/internal/dataset"
)

// Decision turns the gap report into an ordered action list. Covered skills
// get a maintain entry; for real gaps it prefers upskilling an existing
// holder, then internal mobility, and opens a hire only for critical-demand
// skills with no internal coverage at all.
type Decision struct {
	provider dataset.Provider
}

// NewDecision creates the decision stage over a dataset provider.
func NewDecision(provider dataset.Provider) *Decision {
	return &Decision{provider: provider}
}

func (d *Decision) Name() string { return "decision" }

func (d *Decision) DeclaredInputs() []string {
	return []string{"normalized_question", "gap_analysis"}
}

func (d *Decision) DeclaredOutputs() map[string]core.Kind {
	return map[string]core.Kind{"recommendations": core.KindList}
}

func (d *Decision) Execute(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
	question, ok := in.Context["normalized_question"].(string)
	if !ok {
		return nil, fmt.Errorf("normalized_question is not a string")
	}
	report, ok := in.Context["gap_analysis"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("gap_analysis is not a map")
	}

	employees, err := d.provider.Employees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}

	gaps := asSlice(report["gaps"])
	recommendations := make([]any, 0, len(gaps))
	var gapNames []string
	for _, raw := range gaps {
		gap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if asString(gap["status"]) != "covered" {
			gapNames = append(gapNames, asString(gap["skill"]))
		}
		recommendations = append(recommendations, d.recommend(employees, gap))
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, map[string]any{
			"strategy":  "no_action",
			"rationale": "all requested skills have strong internal coverage",
		})
	}

	result := in.Backend.Generate(ctx, decisionPrompt(question, gapNames), in.Params)
	if result.Err != nil {
		return nil, result.Err
	}
	log.Debug().Str("backend", result.Backend).Int("recommendations", len(recommendations)).
		Msg("decision backend call")

	return &core.StageOutput{
		Data:       map[string]any{"recommendations": recommendations},
		PatternTag: "tot",
		Confidence: 0.7,
	}, nil
}

func (d *Decision) recommend(employees []dataset.Employee, gap map[string]any) map[string]any {
	skill := asString(gap["skill"])
	holders := asInt(gap["holders"])
	status := asString(gap["status"])
	demand := asString(gap["demand"])
	trainingWeeks := asInt(gap["training_weeks"])

	recommendation := map[string]any{"skill": skill}
	switch {
	case status == "covered":
		recommendation["strategy"] = "maintain"
		recommendation["rationale"] = fmt.Sprintf(
			"%s is well covered internally; no action needed", skill)
	case holders > 0:
		candidate := bestHolder(employees, skill)
		recommendation["strategy"] = "upskill"
		recommendation["candidates"] = []any{candidate}
		recommendation["timeline_weeks"] = trainingWeeks
		recommendation["rationale"] = fmt.Sprintf(
			"%s already works with %s; targeted training closes the gap fastest", candidate, skill)
	case demand == "critical":
		recommendation["strategy"] = "hire"
		recommendation["rationale"] = fmt.Sprintf(
			"no internal coverage for %s and market demand is critical", skill)
	default:
		candidates := highCapacityCandidates(employees)
		recommendation["strategy"] = "transfer"
		recommendation["candidates"] = candidates
		recommendation["timeline_weeks"] = trainingWeeks
		recommendation["rationale"] = fmt.Sprintf(
			"no one holds %s yet; retrain a high-capacity engineer before opening a requisition", skill)
	}
	return recommendation
}

// bestHolder returns the name of the employee with the highest level in the
// skill, ties broken by dataset order.
func bestHolder(employees []dataset.Employee, skill string) string {
	best := ""
	bestRank := 0
	for _, employee := range employees {
		if rank := levelRank(employee.SkillLevel(skill)); rank > bestRank {
			best = employee.Name
			bestRank = rank
		}
	}
	return best
}

func highCapacityCandidates(employees []dataset.Employee) []any {
	var names []any
	for _, employee := range employees {
		if employee.UpskillingCapacity == "high" {
			names = append(names, employee.Name)
		}
	}
	if names == nil {
		names = []any{}
	}
	return names
}

func asSlice(value any) []any {
	slice, _ := value.([]any)
	return slice
}

func asString(value any) string {
	text, _ := value.(string)
	return text
}

// asInt reads a number that may have gone through a JSON round trip.
func asInt(value any) int {
	switch number := value.(type) {
	case int:
		return number
	case float64:
		return int(number)
	default:
		return 0
	}
}
