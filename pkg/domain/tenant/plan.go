package tenant

// Plan represents a tenant's subscription tier.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// IsValid checks if the plan is valid.
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// String returns the string representation of the plan.
func (p Plan) String() string {
	return string(p)
}

// PlanLimits defines the limits for each plan. -1 means unlimited.
type PlanLimits struct {
	MaxMembers    int
	MaxObjectives int
	MaxTeams      int
	ChatHistory   bool
	Badges        bool
}

// Limits returns the limits for this plan.
func (p Plan) Limits() PlanLimits {
	switch p {
	case PlanStarter:
		return PlanLimits{MaxMembers: 25, MaxObjectives: 100, MaxTeams: 10, ChatHistory: true, Badges: false}
	case PlanProfessional:
		return PlanLimits{MaxMembers: 150, MaxObjectives: -1, MaxTeams: -1, ChatHistory: true, Badges: true}
	case PlanEnterprise:
		return PlanLimits{MaxMembers: -1, MaxObjectives: -1, MaxTeams: -1, ChatHistory: true, Badges: true}
	default: // free
		return PlanLimits{MaxMembers: 5, MaxObjectives: 20, MaxTeams: 3, ChatHistory: false, Badges: false}
	}
}

// AllPlans returns all valid plans.
func AllPlans() []Plan {
	return []Plan{PlanFree, PlanStarter, PlanProfessional, PlanEnterprise}
}

// ParsePlan parses a string to a Plan.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	return p, p.IsValid()
}
