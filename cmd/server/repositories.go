package main

import (
	"github.com/northstarhq/api/internal/infra/postgres"
)

// Repositories holds all repository instances.
type Repositories struct {
	// Identity
	User    *postgres.UserRepository
	Session *postgres.SessionRepository
	Tenant  *postgres.TenantRepository

	// OKR
	Team      *postgres.TeamRepository
	Cadence   *postgres.CadenceRepository
	Objective *postgres.ObjectiveRepository
	KeyResult *postgres.KeyResultRepository
	CheckIn   *postgres.CheckInRepository

	// Collaboration
	Feedback *postgres.FeedbackRepository
	Badge    *postgres.BadgeRepository
	Chat     *postgres.ChatRepository

	// Billing
	Subscription *postgres.SubscriptionRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		User:    postgres.NewUserRepository(db),
		Session: postgres.NewSessionRepository(db),
		Tenant:  postgres.NewTenantRepository(db),

		Team:      postgres.NewTeamRepository(db),
		Cadence:   postgres.NewCadenceRepository(db),
		Objective: postgres.NewObjectiveRepository(db),
		KeyResult: postgres.NewKeyResultRepository(db),
		CheckIn:   postgres.NewCheckInRepository(db),

		Feedback: postgres.NewFeedbackRepository(db),
		Badge:    postgres.NewBadgeRepository(db),
		Chat:     postgres.NewChatRepository(db),

		Subscription: postgres.NewSubscriptionRepository(db),
	}
}
