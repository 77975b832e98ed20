package main

import (
	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/config"
	infrabilling "github.com/northstarhq/api/internal/infra/billing"
	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/email"
	"github.com/northstarhq/api/pkg/logger"
)

// Services holds all application service instances.
type Services struct {
	Auth   *app.AuthService
	User   *app.UserService
	Tenant *app.TenantService
	Email  *app.EmailService

	Team      *app.TeamService
	Cadence   *app.CadenceService
	Objective *app.ObjectiveService
	KeyResult *app.KeyResultService

	Feedback *app.FeedbackService
	Badge    *app.BadgeService
	Chat     *app.ChatService

	Billing *app.BillingService
}

// ServiceDeps contains dependencies needed to create services.
type ServiceDeps struct {
	Config     *config.Config
	Log        *logger.Logger
	Repos      *Repositories
	TokenStore app.AuthTokenStore

	// Optional collaborators; nil disables the corresponding feature.
	EmailEnqueuer  app.EmailJobEnqueuer
	BillingEnqueue app.BillingJobEnqueuer
	ObjectStore    app.ObjectStore
	ChatHistory    app.ChatHistoryCache
}

// NewServices creates all application services.
func NewServices(deps *ServiceDeps) *Services {
	cfg := deps.Config
	log := deps.Log
	repos := deps.Repos

	s := &Services{}

	// Email delivery. Without SMTP the no-op sender keeps the worker
	// and the enqueue paths functional; mail is logged and dropped.
	var sender email.Sender
	if cfg.SMTP.IsConfigured() {
		sender = email.NewSMTPSender(email.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			User:       cfg.SMTP.User,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			FromName:   cfg.SMTP.FromName,
			TLS:        cfg.SMTP.TLS,
			SkipVerify: cfg.SMTP.SkipVerify,
			Timeout:    cfg.SMTP.Timeout,
		})
	} else {
		log.Warn("SMTP not configured, outgoing email is disabled")
		sender = email.NewNoOpSender()
	}
	s.Email = app.NewEmailService(sender, cfg.SMTP, cfg.App.Name, log)

	// Identity
	var authOpts []app.AuthServiceOption
	authOpts = append(authOpts, app.WithAuthEmailService(s.Email))
	if deps.EmailEnqueuer != nil {
		authOpts = append(authOpts, app.WithAuthEmailEnqueuer(deps.EmailEnqueuer))
	}
	s.Auth = app.NewAuthService(repos.User, repos.Session, repos.Tenant, deps.TokenStore, cfg.Auth, log, authOpts...)

	var userOpts []app.UserServiceOption
	if deps.ObjectStore != nil {
		userOpts = append(userOpts, app.WithAvatarStore(deps.ObjectStore))
	}
	s.User = app.NewUserService(repos.User, log, userOpts...)

	var tenantOpts []app.TenantServiceOption
	if deps.EmailEnqueuer != nil {
		tenantOpts = append(tenantOpts, app.WithEmailEnqueuer(deps.EmailEnqueuer))
	}
	if deps.ObjectStore != nil {
		tenantOpts = append(tenantOpts, app.WithLogoStore(deps.ObjectStore))
	}
	s.Tenant = app.NewTenantService(repos.Tenant, repos.User, log, tenantOpts...)

	// OKR
	s.Team = app.NewTeamService(repos.Team, repos.Tenant, log)
	s.Cadence = app.NewCadenceService(repos.Cadence, log)
	s.Objective = app.NewObjectiveService(repos.Objective, repos.Tenant, s.Team, s.Cadence, log)
	s.KeyResult = app.NewKeyResultService(repos.KeyResult, repos.CheckIn, repos.Objective, log)

	// Collaboration
	s.Feedback = app.NewFeedbackService(repos.Feedback, repos.Tenant, log)
	s.Badge = app.NewBadgeService(repos.Badge, repos.Tenant, log)
	var chatOpts []app.ChatServiceOption
	if deps.ChatHistory != nil {
		chatOpts = append(chatOpts, app.WithHistoryCache(deps.ChatHistory))
	}
	s.Chat = app.NewChatService(repos.Chat, repos.Team, repos.Tenant, log, chatOpts...)

	// Billing. Without a configured provider the service still serves
	// reads and webhook dedup; mutations fail with a clear error.
	var provider billing.Provider
	if cfg.Billing.IsConfigured() {
		provider = infrabilling.NewProviderClient(cfg.Billing, log)
	}
	var billingOpts []app.BillingServiceOption
	if deps.EmailEnqueuer != nil {
		billingOpts = append(billingOpts, app.WithBillingEmailEnqueuer(deps.EmailEnqueuer))
	}
	if deps.BillingEnqueue != nil {
		billingOpts = append(billingOpts, app.WithBillingResyncer(deps.BillingEnqueue))
	}
	s.Billing = app.NewBillingService(repos.Subscription, repos.Tenant, repos.User, provider, cfg.Billing, log, billingOpts...)

	return s
}
