package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration, loaded from a .env file (if
// present) and environment variables. Field groups mirror the dotted
// config-key namespaces: venue.*, strategy.*, execution.*, risk.*,
// websocket.*, data.*.
type Config struct {
	// Venue / adapter selection
	VenueName     string
	VenueAPIURL   string
	VenueWSURL    string
	VenueProxyURL string

	// Markets is an optional explicit subscription list. Empty means
	// auto-subscribe to the top N active markets discovered from the venue.
	Markets []string

	// Strategy thresholds
	StrategyMinEdge    float64
	StrategyCostBuffer float64
	StrategyMinDepth   float64

	// Execution
	ExecutionOrderSize           float64
	ExecutionOrderTimeoutSeconds time.Duration
	ExecutionCooldownSeconds     time.Duration
	ExecutionMaxInflightSeconds  time.Duration

	// Risk / kill switch
	RiskMaxDailyNotional        float64
	RiskMaxOpenPositions        int
	RiskHaltOnPartialFill       bool
	RiskMaxPartialFillsPerHour  int
	RiskMaxRejectsPerHour       int
	RiskMaxWSDisconnectsPerHour int

	// WebSocket transport
	WSReconnectDelayInitial time.Duration
	WSReconnectDelayMax     time.Duration
	WSHeartbeatInterval     time.Duration
	WSSnapshotOnReconnect   bool

	// Data / observability
	DataSQLitePath string
	DataLogLevel   string
	DataLogJSON    bool

	// PaperMode bypasses real order placement and simulates fills.
	PaperMode bool
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables, applying defaults for anything unset.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("venue.name", "polymarket")
	v.SetDefault("venue.api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("venue.ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	v.SetDefault("venue.proxy_url", "")

	v.SetDefault("markets", "")

	v.SetDefault("strategy.min_edge", 0.005)
	v.SetDefault("strategy.cost_buffer", 0.001)
	v.SetDefault("strategy.min_depth", 5.0)

	v.SetDefault("execution.order_size", 10.0)
	v.SetDefault("execution.order_timeout_seconds", 10)
	v.SetDefault("execution.cooldown_seconds", 5)
	v.SetDefault("execution.max_inflight_seconds", 30)

	v.SetDefault("risk.max_daily_notional", 1000.0)
	v.SetDefault("risk.max_open_positions", 5)
	v.SetDefault("risk.halt_on_partial_fill", true)
	v.SetDefault("risk.max_partial_fills_per_hour", 3)
	v.SetDefault("risk.max_rejects_per_hour", 10)
	v.SetDefault("risk.max_ws_disconnects_per_hour", 5)

	v.SetDefault("websocket.reconnect_delay_initial", "1s")
	v.SetDefault("websocket.reconnect_delay_max", "30s")
	v.SetDefault("websocket.heartbeat_interval", "10s")
	v.SetDefault("websocket.snapshot_on_reconnect", true)

	v.SetDefault("data.sqlite_path", "./completeset.db")
	v.SetDefault("data.log_level", "info")
	v.SetDefault("data.log_json", true)

	v.SetDefault("paper_mode", true)

	cfg := &Config{
		VenueName:     v.GetString("venue.name"),
		VenueAPIURL:   v.GetString("venue.api_url"),
		VenueWSURL:    v.GetString("venue.ws_url"),
		VenueProxyURL: v.GetString("venue.proxy_url"),

		Markets: parseMarketsList(v.GetString("markets")),

		StrategyMinEdge:    v.GetFloat64("strategy.min_edge"),
		StrategyCostBuffer: v.GetFloat64("strategy.cost_buffer"),
		StrategyMinDepth:   v.GetFloat64("strategy.min_depth"),

		ExecutionOrderSize:           v.GetFloat64("execution.order_size"),
		ExecutionOrderTimeoutSeconds: time.Duration(v.GetInt("execution.order_timeout_seconds")) * time.Second,
		ExecutionCooldownSeconds:     time.Duration(v.GetInt("execution.cooldown_seconds")) * time.Second,
		ExecutionMaxInflightSeconds:  time.Duration(v.GetInt("execution.max_inflight_seconds")) * time.Second,

		RiskMaxDailyNotional:        v.GetFloat64("risk.max_daily_notional"),
		RiskMaxOpenPositions:        v.GetInt("risk.max_open_positions"),
		RiskHaltOnPartialFill:       v.GetBool("risk.halt_on_partial_fill"),
		RiskMaxPartialFillsPerHour:  v.GetInt("risk.max_partial_fills_per_hour"),
		RiskMaxRejectsPerHour:       v.GetInt("risk.max_rejects_per_hour"),
		RiskMaxWSDisconnectsPerHour: v.GetInt("risk.max_ws_disconnects_per_hour"),

		WSReconnectDelayInitial: v.GetDuration("websocket.reconnect_delay_initial"),
		WSReconnectDelayMax:     v.GetDuration("websocket.reconnect_delay_max"),
		WSHeartbeatInterval:     v.GetDuration("websocket.heartbeat_interval"),
		WSSnapshotOnReconnect:   v.GetBool("websocket.snapshot_on_reconnect"),

		DataSQLitePath: v.GetString("data.sqlite_path"),
		DataLogLevel:   v.GetString("data.log_level"),
		DataLogJSON:    v.GetBool("data.log_json"),

		PaperMode: v.GetBool("paper_mode"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// parseMarketsList splits a comma-separated MARKETS env value into trimmed,
// non-empty market IDs.
func parseMarketsList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	markets := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			markets = append(markets, p)
		}
	}
	return markets
}

// Validate checks that configuration values are sane. This is the sole
// source of fatal_config errors: an invalid config aborts the process
// before the pipeline starts.
func (c *Config) Validate() error {
	if c.VenueName == "" {
		return errors.New("venue.name cannot be empty")
	}
	if c.VenueAPIURL == "" {
		return errors.New("venue.api_url cannot be empty")
	}
	if c.VenueWSURL == "" {
		return errors.New("venue.ws_url cannot be empty")
	}

	if c.StrategyMinEdge <= 0 || c.StrategyMinEdge >= 1.0 {
		return fmt.Errorf("strategy.min_edge must be between 0 and 1.0, got %f", c.StrategyMinEdge)
	}
	if c.StrategyCostBuffer < 0 {
		return fmt.Errorf("strategy.cost_buffer must be non-negative, got %f", c.StrategyCostBuffer)
	}
	if c.StrategyMinDepth <= 0 {
		return fmt.Errorf("strategy.min_depth must be positive, got %f", c.StrategyMinDepth)
	}

	if c.ExecutionOrderSize <= 0 {
		return fmt.Errorf("execution.order_size must be positive, got %f", c.ExecutionOrderSize)
	}
	if c.ExecutionOrderTimeoutSeconds <= 0 {
		return fmt.Errorf("execution.order_timeout_seconds must be positive, got %s", c.ExecutionOrderTimeoutSeconds)
	}
	if c.ExecutionCooldownSeconds < 0 {
		return fmt.Errorf("execution.cooldown_seconds must be non-negative, got %s", c.ExecutionCooldownSeconds)
	}
	if c.ExecutionMaxInflightSeconds <= 0 {
		return fmt.Errorf("execution.max_inflight_seconds must be positive, got %s", c.ExecutionMaxInflightSeconds)
	}

	if c.RiskMaxDailyNotional <= 0 {
		return fmt.Errorf("risk.max_daily_notional must be positive, got %f", c.RiskMaxDailyNotional)
	}
	if c.RiskMaxOpenPositions < 1 {
		return fmt.Errorf("risk.max_open_positions must be at least 1, got %d", c.RiskMaxOpenPositions)
	}
	if c.RiskMaxPartialFillsPerHour < 0 || c.RiskMaxRejectsPerHour < 0 || c.RiskMaxWSDisconnectsPerHour < 0 {
		return errors.New("risk.max_{partial_fills,rejects,ws_disconnects}_per_hour must be non-negative")
	}

	if c.WSReconnectDelayInitial <= 0 {
		return fmt.Errorf("websocket.reconnect_delay_initial must be positive, got %s", c.WSReconnectDelayInitial)
	}
	if c.WSReconnectDelayMax < c.WSReconnectDelayInitial {
		return fmt.Errorf("websocket.reconnect_delay_max (%s) must be >= websocket.reconnect_delay_initial (%s)",
			c.WSReconnectDelayMax, c.WSReconnectDelayInitial)
	}
	if c.WSHeartbeatInterval <= 0 {
		return fmt.Errorf("websocket.heartbeat_interval must be positive, got %s", c.WSHeartbeatInterval)
	}

	if c.DataSQLitePath == "" {
		return errors.New("data.sqlite_path cannot be empty")
	}

	return nil
}
