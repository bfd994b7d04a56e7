package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/calendar"
	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/Rrens/invitation-agent/internal/llm/anthropic"
	"github.com/Rrens/invitation-agent/internal/llm/deepseek"
	"github.com/Rrens/invitation-agent/internal/llm/gemini"
	"github.com/Rrens/invitation-agent/internal/llm/ollama"
	"github.com/Rrens/invitation-agent/internal/llm/openai"
	"github.com/Rrens/invitation-agent/internal/mailer"
	"github.com/Rrens/invitation-agent/internal/messaging"
	"github.com/Rrens/invitation-agent/internal/repository/postgres"
	"github.com/Rrens/invitation-agent/internal/repository/redis"
	"github.com/Rrens/invitation-agent/internal/repository/sqlite"
	"github.com/Rrens/invitation-agent/internal/tools"
	"github.com/rs/zerolog/log"
)

type stores struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func()
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Using sqlite store")
		return &stores{
			users:    store.Users(),
			sessions: store.Sessions(),
			close:    func() { store.Close() },
		}, nil

	case "postgres":
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(cfg.DSN(), cfg.MigrationsURL); err != nil {
				return nil, err
			}
		}
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    postgres.NewUserRepository(db.Pool),
			sessions: postgres.NewSessionRepository(db.Pool),
			close:    db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, openai.WithBaseURL(cfg.OpenAI.BaseURL)))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic))
	}
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}

	return router
}

// dialMessaging connects the messaging channel when enabled. A failed dial
// leaves the channel off rather than stopping the server.
func dialMessaging(ctx context.Context, cfg config.MessagingConfig, redisClient *redis.Client) (messaging.Client, func()) {
	if !cfg.Enabled {
		return nil, func() {}
	}

	// The SSE stream lives as long as ctx, so no dial timeout here.
	client, err := messaging.Dial(ctx, cfg.Endpoint, cfg.Timeout)
	if err != nil {
		log.Error().Err(err).Str("endpoint", cfg.Endpoint).Msg("Messaging channel disabled")
		return nil, func() {}
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close messaging session")
		}
	}
	if redisClient != nil {
		return messaging.NewCachingClient(client, redis.NewContactCache(redisClient)), closeFn
	}
	return client, closeFn
}

func newRunner(cfg *config.Config, router *llm.Router, msgClient messaging.Client) (*agent.Runner, error) {
	provider, err := router.GetProvider("")
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Agent.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid agent timezone %q: %w", cfg.Agent.Timezone, err)
	}

	set := tools.New(
		tools.Config{Location: loc, CalendarDir: cfg.Calendar.OutputDir},
		mailer.New(cfg.Email),
		calendar.NewWriter(cfg.Calendar.ProductID, loc),
		msgClient,
	)

	messagingEnabled := msgClient != nil
	subAgents := []*agent.Agent{agent.NewEmailAgent(set.Email())}
	if messagingEnabled {
		subAgents = append(subAgents, agent.NewMessagingAgent(set.Messaging()))
	}

	team, err := agent.NewTeam(agent.NewRootAgent(set.Root(), messagingEnabled), subAgents...)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("provider", provider.Name()).
		Strs("agents", team.Names()).
		Msg("Agent team ready")

	return agent.NewRunner(team, provider, agent.RunnerConfig{
		Model:    cfg.Agent.Model,
		MaxSteps: cfg.Agent.MaxSteps,
		Policy: invitation.Policy{
			MessagingEnabled:       messagingEnabled,
			ContinueOnEmailFailure: cfg.Dispatch.ContinueOnEmailFailure,
		},
	}), nil
}
