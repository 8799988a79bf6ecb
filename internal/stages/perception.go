package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"gaplens/internal/core"
)

// Perception normalizes the raw question, classifies its intent, and extracts
// the technology entities the later stages work from. Entity extraction is
// deterministic lexicon matching so the same question always yields the same
// entities, whichever backend answered.
type Perception struct{}

// NewPerception creates the perception stage.
func NewPerception() *Perception { return &Perception{} }

func (p *Perception) Name() string { return "perception" }

func (p *Perception) DeclaredInputs() []string { return []string{"raw_input"} }

func (p *Perception) DeclaredOutputs() map[string]core.Kind {
	return map[string]core.Kind{
		"intent":              core.KindString,
		"entities":            core.KindList,
		"normalized_question": core.KindString,
	}
}

func (p *Perception) Execute(ctx context.Context, in core.StageInput) (*core.StageOutput, error) {
	rawInput, ok := in.Context["raw_input"].(string)
	if !ok {
		return nil, fmt.Errorf("raw_input is not a string")
	}

	result := in.Backend.Generate(ctx, perceptionPrompt(rawInput), in.Params)
	if result.Err != nil {
		return nil, result.Err
	}
	log.Debug().Str("backend", result.Backend).Dur("elapsed", result.Duration).
		Msg("perception backend call")

	normalized := normalizeQuestion(rawInput)
	entities := extractSkills(normalized)

	return &core.StageOutput{
		Data: map[string]any{
			"intent":              classifyIntent(normalized),
			"entities":            entities,
			"normalized_question": normalized,
		},
		PatternTag: "react",
		Confidence: 0.8,
	}, nil
}

// normalizeQuestion lowercases and collapses whitespace so downstream lookups
// are stable across formatting differences.
func normalizeQuestion(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

func classifyIntent(question string) string {
	switch {
	case strings.Contains(question, "hire") || strings.Contains(question, "recruit"):
		return "hiring_assessment"
	case strings.Contains(question, "train") || strings.Contains(question, "upskill") ||
		strings.Contains(question, "learn"):
		return "training_planning"
	case strings.Contains(question, "gap") || strings.Contains(question, "missing") ||
		strings.Contains(question, "need"):
		return "skill_gap_analysis"
	default:
		return "skill_analysis"
	}
}
