package dataset

// Built-in mock dataset: a small engineering org with a deliberate AWS and
// Kubernetes gap, so gap analysis has something to find.

var mockEmployees = []Employee{
	{
		ID:         "emp_001",
		Name:       "John Smith",
		Role:       "Senior Frontend Developer",
		Department: "Engineering",
		Skills: []Skill{
			{Name: "React", Level: "expert", YearsExperience: 5},
			{Name: "JavaScript", Level: "expert", YearsExperience: 6},
			{Name: "TypeScript", Level: "advanced", YearsExperience: 4},
			{Name: "CSS", Level: "expert", YearsExperience: 6},
		},
		ExperienceYears:    7,
		Availability:       "full-time",
		UpskillingCapacity: "high",
	},
	{
		ID:         "emp_002",
		Name:       "Sarah Johnson",
		Role:       "Frontend Developer",
		Department: "Engineering",
		Skills: []Skill{
			{Name: "React", Level: "intermediate", YearsExperience: 2.5},
			{Name: "JavaScript", Level: "intermediate", YearsExperience: 3},
			{Name: "HTML", Level: "advanced", YearsExperience: 4},
			{Name: "CSS", Level: "advanced", YearsExperience: 4},
		},
		ExperienceYears:    3,
		Availability:       "full-time",
		UpskillingCapacity: "high",
	},
	{
		ID:         "emp_003",
		Name:       "Michael Chen",
		Role:       "Senior Backend Developer",
		Department: "Engineering",
		Skills: []Skill{
			{Name: "Python", Level: "expert", YearsExperience: 8},
			{Name: "Django", Level: "expert", YearsExperience: 6},
			{Name: "PostgreSQL", Level: "advanced", YearsExperience: 5},
			{Name: "Docker", Level: "advanced", YearsExperience: 4},
			{Name: "AWS", Level: "intermediate", YearsExperience: 3},
		},
		ExperienceYears:    8,
		Availability:       "full-time",
		UpskillingCapacity: "medium",
	},
	{
		ID:         "emp_004",
		Name:       "Emily Rodriguez",
		Role:       "Data Scientist",
		Department: "Data Science",
		Skills: []Skill{
			{Name: "Python", Level: "expert", YearsExperience: 5},
			{Name: "Machine Learning", Level: "advanced", YearsExperience: 3},
			{Name: "SQL", Level: "intermediate", YearsExperience: 3},
		},
		ExperienceYears:    5,
		Availability:       "full-time",
		UpskillingCapacity: "high",
	},
	{
		ID:         "emp_005",
		Name:       "David Kim",
		Role:       "DevOps Engineer",
		Department: "DevOps",
		Skills: []Skill{
			{Name: "Docker", Level: "expert", YearsExperience: 6},
			{Name: "Kubernetes", Level: "advanced", YearsExperience: 4},
			{Name: "AWS", Level: "expert", YearsExperience: 7},
			{Name: "Terraform", Level: "advanced", YearsExperience: 3},
		},
		ExperienceYears:    8,
		Availability:       "full-time",
		UpskillingCapacity: "medium",
	},
	{
		ID:         "emp_006",
		Name:       "Priya Patel",
		Role:       "Mobile App Developer",
		Department: "Mobile",
		Skills: []Skill{
			{Name: "React Native", Level: "advanced", YearsExperience: 4},
			{Name: "Swift", Level: "intermediate", YearsExperience: 2},
			{Name: "Kotlin", Level: "intermediate", YearsExperience: 2},
		},
		ExperienceYears:    5,
		Availability:       "full-time",
		UpskillingCapacity: "high",
	},
}

var mockProjects = []Project{
	{
		ID:             "proj_001",
		Name:           "Customer Portal Redesign",
		Description:    "Rebuild the customer portal as a React single-page app on AWS",
		RequiredSkills: []string{"React", "TypeScript", "AWS", "GraphQL"},
		Status:         "planned",
	},
	{
		ID:             "proj_002",
		Name:           "Analytics Platform",
		Description:    "Batch and streaming analytics over customer events",
		RequiredSkills: []string{"Python", "Machine Learning", "Kubernetes", "SQL"},
		Status:         "active",
	},
	{
		ID:             "proj_003",
		Name:           "Mobile Companion App",
		Description:    "iOS and Android companion app for the portal",
		RequiredSkills: []string{"React Native", "Swift", "Kotlin"},
		Status:         "planned",
	},
}

var mockTeams = []Team{
	{Name: "Frontend", Department: "Engineering", MemberIDs: []string{"emp_001", "emp_002"}},
	{Name: "Backend", Department: "Engineering", MemberIDs: []string{"emp_003"}},
	{Name: "Data", Department: "Data Science", MemberIDs: []string{"emp_004"}},
	{Name: "Platform", Department: "DevOps", MemberIDs: []string{"emp_005"}},
	{Name: "Mobile", Department: "Mobile", MemberIDs: []string{"emp_006"}},
}

var mockSkillMarket = map[string]MarketSkill{
	"react":            {Skill: "React", Demand: "high", SalaryRange: "$110k-$150k", TrainingWeeks: 4},
	"typescript":       {Skill: "TypeScript", Demand: "high", SalaryRange: "$110k-$150k", TrainingWeeks: 2},
	"graphql":          {Skill: "GraphQL", Demand: "medium", SalaryRange: "$100k-$140k", TrainingWeeks: 3},
	"aws":              {Skill: "AWS", Demand: "critical", SalaryRange: "$130k-$170k", TrainingWeeks: 6},
	"kubernetes":       {Skill: "Kubernetes", Demand: "critical", SalaryRange: "$130k-$175k", TrainingWeeks: 6},
	"python":           {Skill: "Python", Demand: "high", SalaryRange: "$115k-$160k", TrainingWeeks: 4},
	"machine learning": {Skill: "Machine Learning", Demand: "critical", SalaryRange: "$140k-$190k", TrainingWeeks: 10},
	"sql":              {Skill: "SQL", Demand: "medium", SalaryRange: "$90k-$130k", TrainingWeeks: 2},
	"react native":     {Skill: "React Native", Demand: "high", SalaryRange: "$105k-$145k", TrainingWeeks: 4},
	"swift":            {Skill: "Swift", Demand: "medium", SalaryRange: "$110k-$150k", TrainingWeeks: 5},
	"kotlin":           {Skill: "Kotlin", Demand: "medium", SalaryRange: "$110k-$150k", TrainingWeeks: 5},
	"docker":           {Skill: "Docker", Demand: "high", SalaryRange: "$115k-$155k", TrainingWeeks: 3},
	"terraform":        {Skill: "Terraform", Demand: "high", SalaryRange: "$125k-$165k", TrainingWeeks: 4},
}
