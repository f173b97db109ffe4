package config

const (
	defaultStorageDriver = "inmemory"
	defaultAPIListen     = ":8081"

	defaultLLMProvider    = "mock"
	defaultLLMTimeoutSecs = 60

	defaultRiskHighInvolvement  = 0.7
	defaultRiskStreakLength     = 3
	defaultRiskBlockedAttempts  = 2
	defaultRiskAcceptanceWindow = 4

	defaultExportK = 5

	defaultEventProvider = "nop"
	defaultEventTopic    = "traza.events"

	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		LLM: LLMConfig{
			Provider:       defaultLLMProvider,
			TimeoutSeconds: defaultLLMTimeoutSecs,
		},
		Risk: RiskConfig{
			HighInvolvement:  defaultRiskHighInvolvement,
			StreakLength:     defaultRiskStreakLength,
			BlockedAttempts:  defaultRiskBlockedAttempts,
			AcceptanceWindow: defaultRiskAcceptanceWindow,
		},
		Export: ExportConfig{
			KAnonymity: defaultExportK,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventProvider,
			Topic:    defaultEventTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
