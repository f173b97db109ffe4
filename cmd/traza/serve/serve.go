// Package servecmder provides the serve command for running the traza API
// server with its full recording pipeline.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelieredu/traza/api"
	"github.com/atelieredu/traza/pkg/agent"
	"github.com/atelieredu/traza/pkg/classifier"
	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/eventstream"
	"github.com/atelieredu/traza/pkg/eventstream/kafka"
	"github.com/atelieredu/traza/pkg/eventstream/nop"
	"github.com/atelieredu/traza/pkg/export"
	"github.com/atelieredu/traza/pkg/gateway"
	"github.com/atelieredu/traza/pkg/governance"
	"github.com/atelieredu/traza/pkg/llm/provider"
	"github.com/atelieredu/traza/pkg/logger"
	"github.com/atelieredu/traza/pkg/risk"
	"github.com/atelieredu/traza/pkg/storage"
	"github.com/atelieredu/traza/pkg/storage/inmemory"
	"github.com/atelieredu/traza/pkg/storage/postgres"
	"github.com/atelieredu/traza/pkg/storage/sqlite"
)

// apiKeyEnv and exportSecretEnv are never stored in config.toml.
const (
	apiKeyEnv       = "TRAZA_LLM_API_KEY"
	exportSecretEnv = "TRAZA_EXPORT_SECRET"
)

// devExportSecret keys pseudonyms when no real secret is configured.
// Fine for local development, logged loudly otherwise.
const devExportSecret = "traza-dev-export-secret"

type ServeCommander struct {
	listen        string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	llmProvider   string
	llmModel      string
	llmBaseURL    string
	eventProvider string
	eventBrokers  string
	eventTopic    string
	debug         bool

	viper  *viper.Viper
	logger *slog.Logger
}

// serveFlags is the flag registry for the serve command.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagStorageDriver: {
		Name:        "storage",
		ViperKey:    "storage.driver",
		Description: "Storage driver (inmemory, sqlite, postgres)",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite database",
	},
	config.FlagPostgresDSN: {
		Name:        "postgres-dsn",
		ViperKey:    "storage.postgres_dsn",
		Description: "Postgres connection string",
	},
	config.FlagLLMProvider: {
		Name: "provider", Shorthand: "p",
		ViperKey:    "llm.provider",
		Description: "LLM provider (mock, openai, gemini, anthropic)",
	},
	config.FlagLLMModel: {
		Name: "model", Shorthand: "m",
		ViperKey:    "llm.model",
		Description: "LLM model name",
	},
	config.FlagLLMBaseURL: {
		Name:        "base-url",
		ViperKey:    "llm.base_url",
		Description: "Override the LLM provider API endpoint",
	},
	config.FlagEventProvider: {
		Name:        "events",
		ViperKey:    "eventstream.provider",
		Description: "Event stream backend (nop, kafka)",
	},
	config.FlagEventBrokers: {
		Name:        "event-brokers",
		ViperKey:    "eventstream.brokers",
		Description: "Comma-separated Kafka broker list",
	},
	config.FlagEventTopic: {
		Name:        "event-topic",
		ViperKey:    "eventstream.topic",
		Description: "Kafka topic for gateway events",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagLLMBaseURL,
	config.FlagEventProvider,
	config.FlagEventBrokers,
	config.FlagEventTopic,
}

const serveLongDesc string = `Run the traza API server.

Starts the recording gateway: the HTTP API, the configured storage driver,
the LLM provider, the governance gate, and the risk analyst.

Configuration precedence is flags > TRAZA_ environment variables >
config.toml > defaults.

Examples:
  traza serve
  traza serve --storage sqlite --sqlite traza.db
  traza serve --provider anthropic --model claude-sonnet-4-20250514
  TRAZA_LLM_API_KEY=sk-... traza serve --provider openai`

const serveShortDesc string = "Run the traza API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.viper = v

			cmder.listen = v.GetString("api.listen")
			cmder.storageDriver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			cmder.llmProvider = v.GetString("llm.provider")
			cmder.llmModel = v.GetString("llm.model")
			cmder.llmBaseURL = v.GetString("llm.base_url")
			cmder.eventProvider = v.GetString("eventstream.provider")
			cmder.eventBrokers = v.GetString("eventstream.brokers")
			cmder.eventTopic = v.GetString("eventstream.topic")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMBaseURL, &cmder.llmBaseURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventBrokers, &cmder.eventBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventTopic, &cmder.eventTopic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	class, err := classifier.New()
	if err != nil {
		return fmt.Errorf("loading classifier signals: %w", err)
	}

	gate, err := c.newGate(ctx)
	if err != nil {
		return err
	}

	p, err := c.newProvider()
	if err != nil {
		return err
	}

	events, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	gw, err := gateway.New(gateway.Options{
		Store:      store,
		Classifier: class,
		Gate:       gate,
		Agents: agent.NewRegistry(
			agent.NewTutor(p),
			agent.NewSimulator(p),
			agent.NewEvaluator(p),
			agent.NewGovernanceAgent(),
			agent.NewTraceabilityAgent(),
		),
		Analyst:   risk.NewAnalyst(store, c.riskPolicy()),
		Evaluator: agent.NewEvaluator(p),
		Events:    events,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("building gateway: %w", err)
	}

	exporter := c.newExporter(store)

	llmCfg := config.LLMConfig{
		Provider:       c.llmProvider,
		Model:          c.llmModel,
		BaseURL:        c.llmBaseURL,
		MaxTokens:      c.viper.GetUint("llm.max_tokens"),
		TimeoutSeconds: c.viper.GetUint("llm.timeout_seconds"),
	}

	server := api.NewServer(api.Config{ListenAddr: c.listen}, gw, exporter, llmCfg, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

func (c *ServeCommander) newStore(ctx context.Context) (storage.Store, error) {
	switch c.storageDriver {
	case "sqlite":
		if c.sqlitePath == "" {
			return nil, fmt.Errorf("sqlite storage requires a database path (--sqlite or storage.sqlite_path)")
		}
		store, err := sqlite.NewStore(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.sqlitePath)
		return store, nil

	case "postgres":
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a connection string (--postgres-dsn or storage.postgres_dsn)")
		}
		store, err := postgres.NewStore(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return store, nil

	case "", "inmemory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewStore(), nil
	}

	return nil, fmt.Errorf("unknown storage driver: %q", c.storageDriver)
}

// newGate builds the governance gate, applies the configured pattern
// override if one exists, and starts the hot-reload watcher.
func (c *ServeCommander) newGate(ctx context.Context) (*governance.Gate, error) {
	gate, err := governance.New()
	if err != nil {
		return nil, fmt.Errorf("loading governance patterns: %w", err)
	}

	path := c.viper.GetString("governance.patterns_path")
	if path == "" {
		return gate, nil
	}

	if raw, err := os.ReadFile(path); err == nil {
		if err := gate.Reload(raw); err != nil {
			return nil, fmt.Errorf("loading governance override %s: %w", path, err)
		}
		c.logger.Info("loaded governance pattern override", "path", path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading governance override %s: %w", path, err)
	}

	if err := governance.Watch(ctx, gate, path, c.logger); err != nil {
		return nil, err
	}
	return gate, nil
}

func (c *ServeCommander) newProvider() (provider.Provider, error) {
	p, err := provider.New(c.llmProvider, provider.Options{
		APIKey:    os.Getenv(apiKeyEnv),
		Model:     c.llmModel,
		BaseURL:   c.llmBaseURL,
		MaxTokens: int(c.viper.GetUint("llm.max_tokens")),
		Timeout:   time.Duration(c.viper.GetUint("llm.timeout_seconds")) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	if err := p.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("LLM provider configuration: %w", err)
	}

	info := p.ModelInfo()
	c.logger.Info("using LLM provider", "provider", info.Provider, "model", info.Model)
	return p, nil
}

func (c *ServeCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.eventProvider {
	case "kafka":
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: strings.Split(c.eventBrokers, ","),
			Topic:   c.eventTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing events to kafka", "brokers", c.eventBrokers, "topic", c.eventTopic)
		return pub, nil

	case "", "nop":
		return nop.NewPublisher(), nil
	}

	return nil, fmt.Errorf("unknown event stream provider: %q", c.eventProvider)
}

func (c *ServeCommander) riskPolicy() risk.Policy {
	policy := risk.DefaultPolicy()
	if v := c.viper.GetFloat64("risk.high_involvement"); v > 0 {
		policy.HighInvolvement = v
	}
	if v := c.viper.GetInt("risk.streak_length"); v > 0 {
		policy.StreakLength = v
	}
	if v := c.viper.GetInt("risk.blocked_attempts"); v > 0 {
		policy.BlockedAttempts = v
	}
	if v := c.viper.GetInt("risk.acceptance_window"); v > 0 {
		policy.AcceptanceWindow = v
	}
	return policy
}

func (c *ServeCommander) newExporter(store storage.Store) *export.Exporter {
	secret := os.Getenv(exportSecretEnv)
	if secret == "" {
		secret = devExportSecret
		c.logger.Warn("no export secret configured, using the development default",
			"env", exportSecretEnv,
		)
	}

	exporter := export.NewExporter(store, []byte(secret), c.logger)
	exporter.SetDefaultK(c.viper.GetInt("export.k_anonymity"))
	return exporter
}
