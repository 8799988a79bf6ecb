package dataset

import (
	"context"
	"fmt"
	"strings"
)

// Skill is one skill held by an employee.
type Skill struct {
	Name            string  `json:"name"`
	Level           string  `json:"level"` // beginner, intermediate, advanced, expert
	YearsExperience float64 `json:"years_experience"`
}

// Employee is one staffed person with their skill profile.
type Employee struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Role               string  `json:"role"`
	Department         string  `json:"department"`
	Skills             []Skill `json:"skills"`
	ExperienceYears    float64 `json:"experience_years"`
	Availability       string  `json:"availability"`
	UpskillingCapacity string  `json:"upskilling_capacity"` // low, medium, high
}

// HasSkill reports whether the employee holds the named skill at any level.
func (e Employee) HasSkill(name string) bool {
	for _, skill := range e.Skills {
		if strings.EqualFold(skill.Name, name) {
			return true
		}
	}
	return false
}

// SkillLevel returns the employee's level for a skill, or "" if absent.
func (e Employee) SkillLevel(name string) string {
	for _, skill := range e.Skills {
		if strings.EqualFold(skill.Name, name) {
			return skill.Level
		}
	}
	return ""
}

// Project is one staffing target with its required stack.
type Project struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"required_skills"`
	Status         string   `json:"status"`
}

// Team is a named group of employee ids.
type Team struct {
	Name       string   `json:"name"`
	Department string   `json:"department"`
	MemberIDs  []string `json:"member_ids"`
}

// MarketSkill is hiring-market data for one skill.
type MarketSkill struct {
	Skill         string `json:"skill"`
	Demand        string `json:"demand"` // medium, high, critical
	SalaryRange   string `json:"salary_range"`
	TrainingWeeks int    `json:"training_weeks"`
}

// Provider is the read-only query capability the analysis and decision
// stages consume. The core treats it as a black box; implementations may be
// mocked or backed by a real service.
type Provider interface {
	Employees(ctx context.Context) ([]Employee, error)
	Projects(ctx context.Context) ([]Project, error)
	ProjectByID(ctx context.Context, id string) (*Project, error)
	Teams(ctx context.Context) ([]Team, error)
	SkillMarket(ctx context.Context) (map[string]MarketSkill, error)
}

// MockProvider serves the built-in dataset.
type MockProvider struct {
	employees []Employee
	projects  []Project
	teams     []Team
	market    map[string]MarketSkill
}

// NewMockProvider creates a provider over the built-in mock dataset.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		employees: mockEmployees,
		projects:  mockProjects,
		teams:     mockTeams,
		market:    mockSkillMarket,
	}
}

// Employees returns all employees.
func (p *MockProvider) Employees(ctx context.Context) ([]Employee, error) {
	return p.employees, nil
}

// Projects returns all projects.
func (p *MockProvider) Projects(ctx context.Context) ([]Project, error) {
	return p.projects, nil
}

// ProjectByID returns one project by id.
func (p *MockProvider) ProjectByID(ctx context.Context, id string) (*Project, error) {
	for i := range p.projects {
		if p.projects[i].ID == id {
			return &p.projects[i], nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", id)
}

// Teams returns all teams.
func (p *MockProvider) Teams(ctx context.Context) ([]Team, error) {
	return p.teams, nil
}

// SkillMarket returns market data keyed by lower-case skill name.
func (p *MockProvider) SkillMarket(ctx context.Context) (map[string]MarketSkill, error) {
	return p.market, nil
}
