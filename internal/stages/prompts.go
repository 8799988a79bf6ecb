package stages

import (
	"fmt"
	"strings"
)

func perceptionPrompt(rawInput string) string {
	return fmt.Sprintf(`You are the perception step of a skills-gap pipeline.
Classify the intent of the question below and name the technologies it mentions.

Question: %s`, rawInput)
}

func analysisPrompt(question string, skills []string, gaps []string) string {
	return fmt.Sprintf(`You are the analysis step of a skills-gap pipeline.
Summarize the gap between the team's current skills and what the question asks for.

Question: %s
Skills in scope: %s
Gaps found: %s`, question, strings.Join(skills, ", "), strings.Join(gaps, ", "))
}

func decisionPrompt(question string, gaps []string) string {
	return fmt.Sprintf(`You are the decision step of a skills-gap pipeline.
Propose how to close each gap, preferring upskilling over transfers over hiring.

Question: %s
Gaps to close: %s`, question, strings.Join(gaps, ", "))
}
