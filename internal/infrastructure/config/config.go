package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Chat     ChatConfig     `validate:"required"`
	Commerce CommerceConfig `validate:"required"`
	Intake   IntakeConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// BranchConfig identifies one stock-reporting branch: its chat identity, its
// display name, and the commerce location its inventory is written to.
type BranchConfig struct {
	ID         string `validate:"required"`
	Name       string `validate:"required"`
	LocationID string `validate:"required"`
}

// ChatConfig holds the fixed chat identities the workflow is bound to.
type ChatConfig struct {
	GroupID  string         `validate:"required"`
	HostID   string         `validate:"required"`
	Branches []BranchConfig `validate:"required,len=3,dive"`
}

// CommerceConfig holds commerce backend connection settings.
type CommerceConfig struct {
	StoreURL       string `validate:"required"`
	AccessToken    string `validate:"required"`
	RESTVersion    string
	GraphQLVersion string
	TimeoutSeconds int
}

// IntakeConfig holds workflow tuning knobs.
type IntakeConfig struct {
	NumericSizeBase int // first size of the numeric domain, default 33
}

// HTTPConfig holds status server settings.
type HTTPConfig struct {
	Enabled bool
	Port    string
}

// DatabaseConfig holds the session log store settings.
type DatabaseConfig struct {
	Path string // sqlite file path
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with BOT_ prefix (e.g., BOT_COMMERCE_ACCESS_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Chat: ChatConfig{
			GroupID: v.GetString("chat.group_id"),
			HostID:  v.GetString("chat.host_id"),
			Branches: []BranchConfig{
				{
					ID:         v.GetString("chat.branch_c1.id"),
					Name:       v.GetString("chat.branch_c1.name"),
					LocationID: v.GetString("chat.branch_c1.location_id"),
				},
				{
					ID:         v.GetString("chat.branch_c2.id"),
					Name:       v.GetString("chat.branch_c2.name"),
					LocationID: v.GetString("chat.branch_c2.location_id"),
				},
				{
					ID:         v.GetString("chat.branch_m3.id"),
					Name:       v.GetString("chat.branch_m3.name"),
					LocationID: v.GetString("chat.branch_m3.location_id"),
				},
			},
		},
		Commerce: CommerceConfig{
			StoreURL:       v.GetString("commerce.store_url"),
			AccessToken:    v.GetString("commerce.access_token"),
			RESTVersion:    v.GetString("commerce.rest_version"),
			GraphQLVersion: v.GetString("commerce.graphql_version"),
			TimeoutSeconds: v.GetInt("commerce.timeout_seconds"),
		},
		Intake: IntakeConfig{
			NumericSizeBase: v.GetInt("intake.numeric_size_base"),
		},
		HTTP: HTTPConfig{
			Enabled: v.GetBool("http.enabled"),
			Port:    v.GetString("http.port"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stockbot")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("chat.branch_c1.name", "Copacabana 1")
	v.SetDefault("chat.branch_c2.name", "Copacabana 2")
	v.SetDefault("chat.branch_m3.name", "Medellín 1")
	v.SetDefault("commerce.rest_version", "2023-10")
	v.SetDefault("commerce.graphql_version", "2024-04")
	v.SetDefault("commerce.timeout_seconds", 30)
	v.SetDefault("intake.numeric_size_base", 33)
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", "8080")
	v.SetDefault("database.path", "stockbot.db")
}

// Validate checks that every required identifier is present. A missing value
// is a fatal startup error: the bot must never run partially configured.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return fmt.Errorf("missing or invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Chat.Branches))
	for _, b := range c.Chat.Branches {
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate branch identity %q", b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	if _, clash := seen[c.Chat.HostID]; clash {
		return fmt.Errorf("host identity %q cannot also be a branch", c.Chat.HostID)
	}

	return nil
}

// BranchIDs returns the ordered branch identities.
func (c *ChatConfig) BranchIDs() []string {
	ids := make([]string, len(c.Branches))
	for i, b := range c.Branches {
		ids[i] = b.ID
	}
	return ids
}

// BranchNames returns the branch display names keyed by identity.
func (c *ChatConfig) BranchNames() map[string]string {
	names := make(map[string]string, len(c.Branches))
	for _, b := range c.Branches {
		names[b.ID] = b.Name
	}
	return names
}

// LocationIDs returns the commerce location ids keyed by branch identity.
func (c *ChatConfig) LocationIDs() map[string]string {
	locations := make(map[string]string, len(c.Branches))
	for _, b := range c.Branches {
		locations[b.ID] = b.LocationID
	}
	return locations
}
