package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaplens/internal/dataset"
)

// gapReport builds a gap_analysis value the way it looks after a JSON round
// trip through session persistence: plain maps, slices, and float64 numbers.
func gapReport(gaps ...map[string]any) map[string]any {
	raw := make([]any, len(gaps))
	for i, gap := range gaps {
		raw[i] = gap
	}
	return map[string]any{"gaps": raw, "skills": []any{}, "coverage": map[string]any{}}
}

func TestDecisionUpskillsExistingHolder(t *testing.T) {
	stage := NewDecision(dataset.NewMockProvider())
	output, err := stage.Execute(context.Background(), stubInput(map[string]any{
		"normalized_question": "who should learn aws?",
		"gap_analysis": gapReport(map[string]any{
			"skill": "AWS", "holders": float64(2), "best_level": "intermediate",
			"status": "partial", "demand": "critical", "training_weeks": float64(6),
		}),
	}))
	require.NoError(t, err)

	assert.Equal(t, "tot", output.PatternTag)
	recommendations := output.Data["recommendations"].([]any)
	require.Len(t, recommendations, 1)
	recommendation := recommendations[0].(map[string]any)
	assert.Equal(t, "upskill", recommendation["strategy"])
	assert.Equal(t, 6, recommendation["timeline_weeks"])
	// David Kim is the strongest AWS holder in the dataset.
	assert.Equal(t, []any{"David Kim"}, recommendation["candidates"])
}

func TestDecisionHiresForCriticalGapWithNoCoverage(t *testing.T) {
	stage := NewDecision(dataset.NewMockProvider())
	output, err := stage.Execute(context.Background(), stubInput(map[string]any{
		"normalized_question": "do we need rust?",
		"gap_analysis": gapReport(map[string]any{
			"skill": "Rust", "holders": float64(0), "best_level": "",
			"status": "missing", "demand": "critical",
		}),
	}))
	require.NoError(t, err)

	recommendation := output.Data["recommendations"].([]any)[0].(map[string]any)
	assert.Equal(t, "hire", recommendation["strategy"])
}

func TestDecisionTransfersForModerateGapWithNoCoverage(t *testing.T) {
	stage := NewDecision(dataset.NewMockProvider())
	output, err := stage.Execute(context.Background(), stubInput(map[string]any{
		"normalized_question": "should someone pick up graphql?",
		"gap_analysis": gapReport(map[string]any{
			"skill": "GraphQL", "holders": float64(0), "best_level": "",
			"status": "missing", "demand": "medium", "training_weeks": float64(3),
		}),
	}))
	require.NoError(t, err)

	recommendation := output.Data["recommendations"].([]any)[0].(map[string]any)
	assert.Equal(t, "transfer", recommendation["strategy"])
	assert.NotEmpty(t, recommendation["candidates"])
	assert.Equal(t, 3, recommendation["timeline_weeks"])
}

func TestDecisionMaintainsCoveredSkill(t *testing.T) {
	stage := NewDecision(dataset.NewMockProvider())
	output, err := stage.Execute(context.Background(), stubInput(map[string]any{
		"normalized_question": "are we covered for react?",
		"gap_analysis": gapReport(map[string]any{
			"skill": "React", "holders": float64(2), "best_level": "expert",
			"status": "covered", "demand": "high", "training_weeks": float64(4),
		}),
	}))
	require.NoError(t, err)

	recommendation := output.Data["recommendations"].([]any)[0].(map[string]any)
	assert.Equal(t, "maintain", recommendation["strategy"])
}

func TestDecisionWithNoGapsRecommendsNoAction(t *testing.T) {
	stage := NewDecision(dataset.NewMockProvider())
	output, err := stage.Execute(context.Background(), stubInput(map[string]any{
		"normalized_question": "are we covered for react?",
		"gap_analysis":        gapReport(),
	}))
	require.NoError(t, err)

	recommendations := output.Data["recommendations"].([]any)
	require.Len(t, recommendations, 1)
	recommendation := recommendations[0].(map[string]any)
	assert.Equal(t, "no_action", recommendation["strategy"])
}

func TestDecisionRequiresGapReport(t *testing.T) {
	stage := NewDecision(dataset.NewMockProvider())
	_, err := stage.Execute(context.Background(), stubInput(map[string]any{
		"normalized_question": "anything",
	}))
	assert.Error(t, err)
}
