package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"gaplens/internal/core"
	"gaplens/internal/dataset"
)

// Analysis compares the skills the question asks about against the current
// workforce and produces the structured gap report the decision stage
// consumes. Coverage facts come from the dataset provider; the backend only
// contributes the narrative summary.
type Analysis struct {
	provider dataset.Provider
}

// NewAnalysis creates the analysis stage over a dataset provider.
func NewAnalysis(provider dataset.Provider) *Analysis {
	return &Analysis{provider: provider}
}

func (a *Analysis) Name() string { return "analysis" }

func (a *Analysis) DeclaredInputs() []string { return []string{"normalized_question"} }

func (a *Analysis) DeclaredOutputs() map[string]core.Kind {
	return map[string]core.Kind{"gap_analysis": core.KindMap}
}

func (a *Analysis) Execute(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
	question, ok := in.Context["normalized_question"].(string)
	if !ok {
		return nil, fmt.Errorf("normalized_question is not a string")
	}

	skills, err := a.skillsInScope(ctx, question)
	if err != nil {
		return nil, err
	}

	employees, err := a.provider.Employees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	market, err := a.provider.SkillMarket(ctx)
	if err != nil {
		return nil, fmt.Errorf("load skill market: %w", err)
	}

	// One gap entry per skill in scope; covered skills stay in the list with
	// status "covered".
	coverage := make(map[string]any, len(skills))
	var gaps []any
	var gapNames []string
	var riskFactors []any
	for _, skill := range skills {
		holders, bestLevel := skillCoverage(employees, skill)
		coverage[skill] = map[string]any{"holders": holders, "best_level": bestLevel}

		status := "missing"
		switch {
		case holders > 0 && levelRank(bestLevel) >= levelRank("advanced"):
			status = "covered"
		case holders > 0:
			status = "partial"
		}

		gap := map[string]any{
			"skill":      skill,
			"holders":    holders,
			"best_level": bestLevel,
			"status":     status,
		}
		if entry, ok := market[strings.ToLower(skill)]; ok {
			gap["demand"] = entry.Demand
			gap["training_weeks"] = entry.TrainingWeeks
			if entry.Demand == "critical" && status != "covered" {
				riskFactors = append(riskFactors,
					fmt.Sprintf("%s is in critical market demand with no strong internal coverage", skill))
			}
		}
		gaps = append(gaps, gap)
		if status != "covered" {
			gapNames = append(gapNames, skill)
		}
	}
	if riskFactors == nil {
		riskFactors = []any{}
	}
	if gaps == nil {
		gaps = []any{}
	}

	result := in.Backend.Generate(ctx, analysisPrompt(question, skills, gapNames), in.Params)
	if result.Err != nil {
		return nil, result.Err
	}
	log.Debug().Str("backend", result.Backend).Int("gaps", len(gaps)).
		Msg("analysis backend call")

	return &core.StageOutput{
		Data: map[string]any{
			"gap_analysis": map[string]any{
				"skills":       toAnySlice(skills),
				"gaps":         gaps,
				"coverage":     coverage,
				"risk_factors": riskFactors,
				"narrative":    result.Text,
			},
		},
		PatternTag: "rewoo",
		Confidence: 0.75,
	}, nil
}

// skillsInScope resolves which skills the question is about: explicit
// mentions first, then the required stack of a mentioned project.
func (a *Analysis) skillsInScope(ctx context.Context, question string) ([]string, error) {
	if skills := extractSkills(question); len(skills) > 0 {
		return skills, nil
	}
	projects, err := a.provider.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	for _, project := range projects {
		if strings.Contains(question, strings.ToLower(project.Name)) {
			return project.RequiredSkills, nil
		}
	}
	return nil, nil
}

func skillCoverage(employees []dataset.Employee, skill string) (int, string) {
	holders := 0
	best := ""
	for _, employee := range employees {
		level := employee.SkillLevel(skill)
		if level == "" {
			continue
		}
		holders++
		if levelRank(level) > levelRank(best) {
			best = level
		}
	}
	return holders, best
}

func levelRank(level string) int {
	switch level {
	case "beginner":
		return 1
	case "intermediate":
		return 2
	case "advanced":
		return 3
	case "expert":
		return 4
	default:
		return 0
	}
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
