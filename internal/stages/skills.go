package stages

import "strings"

// canonicalSkills maps lower-case skill mentions to their canonical names.
// Multi-word entries are listed before their substrings so "react native"
// wins over "react".
var canonicalSkills = []struct {
	mention   string
	canonical string
}{
	{"react native", "React Native"},
	{"machine learning", "Machine Learning"},
	{"react", "React"},
	{"typescript", "TypeScript"},
	{"javascript", "JavaScript"},
	{"graphql", "GraphQL"},
	{"kubernetes", "Kubernetes"},
	{"terraform", "Terraform"},
	{"python", "Python"},
	{"django", "Django"},
	{"postgresql", "PostgreSQL"},
	{"docker", "Docker"},
	{"kotlin", "Kotlin"},
	{"swift", "Swift"},
	{"aws", "AWS"},
	{"sql", "SQL"},
	{"css", "CSS"},
	{"html", "HTML"},
}

// extractSkills returns the canonical skills mentioned in the text, in
// lexicon order, each at most once.
func extractSkills(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	consumed := lower
	for _, entry := range canonicalSkills {
		if strings.Contains(consumed, entry.mention) {
			found = append(found, entry.canonical)
			consumed = strings.ReplaceAll(consumed, entry.mention, " ")
		}
	}
	return found
}
