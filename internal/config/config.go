package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Lark        LarkConfig        `mapstructure:"lark"`
	Rates       RatesConfig       `mapstructure:"rates"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Calculation CalculationConfig `mapstructure:"calculation"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Lang        string            `mapstructure:"lang"`

	// Labels is filled from the nested labels section, see flattenLabels
	Labels map[string]map[string]string `mapstructure:"-"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	BaseDir         string   `mapstructure:"base_dir"`
	MaxReceiptBytes int64    `mapstructure:"max_receipt_bytes"`
	ReceiptTypes    []string `mapstructure:"receipt_types"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID         string        `mapstructure:"app_id"`
	AppSecret     string        `mapstructure:"app_secret"`
	ReceiveIDType string        `mapstructure:"receive_id_type"`
	APITimeout    time.Duration `mapstructure:"api_timeout"`
}

// RatesConfig holds exchange rate source configuration
type RatesConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RetryMax int           `mapstructure:"retry_max"`
	Offline  bool          `mapstructure:"offline"`
}

// WorkerConfig holds background processing configuration
type WorkerConfig struct {
	BatchConcurrency      int           `mapstructure:"batch_concurrency"`
	OutboxPollInterval    time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize       int           `mapstructure:"outbox_batch_size"`
	OutboxMaxAttempts     int           `mapstructure:"outbox_max_attempts"`
	OutboxBaseBackoff     time.Duration `mapstructure:"outbox_base_backoff"`
	OutboxMaxBackoff      time.Duration `mapstructure:"outbox_max_backoff"`
	OutboxDeliveryTimeout time.Duration `mapstructure:"outbox_delivery_timeout"`
	OutboxJitterPercent   uint64        `mapstructure:"outbox_jitter_percent"`
}

// FactorConfig is a multiplier with exempt countries
type FactorConfig struct {
	Factor     float64  `mapstructure:"factor"`
	Exceptions []string `mapstructure:"exceptions"`
}

// CalculationConfig holds the calculation constants
type CalculationConfig struct {
	BaseCurrency             string             `mapstructure:"base_currency"`
	MealCuts                 map[string]float64 `mapstructure:"meal_cuts"`
	CateringFactor           FactorConfig       `mapstructure:"catering_factor"`
	OvernightFactor          FactorConfig       `mapstructure:"overnight_factor"`
	AllowSpouseRefund        bool               `mapstructure:"allow_spouse_refund"`
	DistanceRefunds          map[string]float64 `mapstructure:"distance_refunds"`
	SecondNightOnAirplane    string             `mapstructure:"second_night_on_airplane"`
	SecondNightOnShipOrFerry string             `mapstructure:"second_night_on_ship_or_ferry"`
	FallbackLumpSumCountry   string             `mapstructure:"fallback_lump_sum_country"`
	AllowDiscontinuousStages bool               `mapstructure:"allow_discontinuous_stages"`
	TimeZone                 string             `mapstructure:"time_zone"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. A .env file
// next to the working directory is applied first when present. An empty
// configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("REIMBURSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	labels, err := flattenLabels(v.GetStringMap("labels"))
	if err != nil {
		return nil, fmt.Errorf("invalid labels: %w", err)
	}
	cfg.Labels = labels

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)

	// Database defaults
	v.SetDefault("database.path", "data/reimbursement.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Storage defaults
	v.SetDefault("storage.base_dir", "data/files")
	v.SetDefault("storage.max_receipt_bytes", 10<<20)
	v.SetDefault("storage.receipt_types", []string{"application/pdf", "image/jpeg", "image/png"})

	// Lark defaults
	v.SetDefault("lark.receive_id_type", "user_id")
	v.SetDefault("lark.api_timeout", 30*time.Second)

	// Rates defaults
	v.SetDefault("rates.base_url", "https://ec.europa.eu/budg/inforeuro/api/public/monthly-rates")
	v.SetDefault("rates.timeout", 30*time.Second)
	v.SetDefault("rates.retry_max", 3)
	v.SetDefault("rates.offline", false)

	// Worker defaults
	v.SetDefault("worker.batch_concurrency", 4)
	v.SetDefault("worker.outbox_poll_interval", 5*time.Second)
	v.SetDefault("worker.outbox_batch_size", 20)
	v.SetDefault("worker.outbox_max_attempts", 8)
	v.SetDefault("worker.outbox_base_backoff", 10*time.Second)
	v.SetDefault("worker.outbox_max_backoff", time.Hour)
	v.SetDefault("worker.outbox_delivery_timeout", 30*time.Second)
	v.SetDefault("worker.outbox_jitter_percent", 20)

	// Calculation defaults
	d := entity.DefaultSettings()
	v.SetDefault("calculation.base_currency", d.BaseCurrency)
	v.SetDefault("calculation.meal_cuts", map[string]float64{
		"breakfast": d.MealCuts.Breakfast,
		"lunch":     d.MealCuts.Lunch,
		"dinner":    d.MealCuts.Dinner,
	})
	v.SetDefault("calculation.catering_factor.factor", d.CateringFactor.Factor)
	v.SetDefault("calculation.overnight_factor.factor", d.OvernightFactor.Factor)
	v.SetDefault("calculation.allow_spouse_refund", d.AllowSpouseRefund)
	v.SetDefault("calculation.distance_refunds", d.DistanceRefunds)
	v.SetDefault("calculation.second_night_on_airplane", d.SecondNightOnAirplane)
	v.SetDefault("calculation.second_night_on_ship_or_ferry", d.SecondNightOnShipOrFerry)
	v.SetDefault("calculation.fallback_lump_sum_country", d.FallbackLumpSumCountry)
	v.SetDefault("calculation.allow_discontinuous_stages", false)
	v.SetDefault("calculation.time_zone", "UTC")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("lang", "en")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("database.path", "REIMBURSE_DATABASE_PATH", "DATABASE_PATH")
}

// flattenLabels turns the nested labels section (lang -> nested keys) into
// dotted keys per language, e.g. labels.en.state.approved -> "state.approved".
func flattenLabels(raw map[string]interface{}) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(raw))
	for lang, tree := range raw {
		table := make(map[string]string)
		if err := flattenInto(table, "", tree); err != nil {
			return nil, fmt.Errorf("%s: %w", lang, err)
		}
		out[lang] = table
	}
	return out, nil
}

func flattenInto(table map[string]string, prefix string, node interface{}) error {
	switch n := node.(type) {
	case map[string]interface{}:
		for k, child := range n {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenInto(table, key, child); err != nil {
				return err
			}
		}
	case string:
		table[prefix] = n
	default:
		return fmt.Errorf("label %q must be text", prefix)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := utils.ValidateCurrencyCode(utils.NormalizeCode(c.Calculation.BaseCurrency)); err != nil {
		return fmt.Errorf("calculation.base_currency: %w", err)
	}
	for meal, cut := range c.Calculation.MealCuts {
		if err := utils.ValidateShare(cut); err != nil {
			return fmt.Errorf("calculation.meal_cuts.%s: %w", meal, err)
		}
	}
	for name, f := range map[string]FactorConfig{
		"catering_factor":  c.Calculation.CateringFactor,
		"overnight_factor": c.Calculation.OvernightFactor,
	} {
		if err := utils.ValidateShare(f.Factor); err != nil {
			return fmt.Errorf("calculation.%s: %w", name, err)
		}
	}
	for refundType, rate := range c.Calculation.DistanceRefunds {
		if err := utils.ValidateAmount(rate); err != nil {
			return fmt.Errorf("calculation.distance_refunds.%s: %w", refundType, err)
		}
	}
	for _, code := range []string{c.Calculation.SecondNightOnAirplane, c.Calculation.SecondNightOnShipOrFerry, c.Calculation.FallbackLumpSumCountry} {
		if err := utils.ValidateCountryCode(utils.NormalizeCode(code)); err != nil {
			return fmt.Errorf("calculation: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Calculation.TimeZone); err != nil {
		return fmt.Errorf("calculation.time_zone: %w", err)
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	return nil
}

// Settings returns the calculation constants for the domain
func (c *Config) Settings() entity.Settings {
	loc, err := time.LoadLocation(c.Calculation.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	calc := c.Calculation
	return entity.Settings{
		BaseCurrency: strings.ToUpper(calc.BaseCurrency),
		MealCuts: entity.MealCuts{
			Breakfast: calc.MealCuts["breakfast"],
			Lunch:     calc.MealCuts["lunch"],
			Dinner:    calc.MealCuts["dinner"],
		},
		CateringFactor:           entity.Factor{Factor: calc.CateringFactor.Factor, Exceptions: upper(calc.CateringFactor.Exceptions)},
		OvernightFactor:          entity.Factor{Factor: calc.OvernightFactor.Factor, Exceptions: upper(calc.OvernightFactor.Exceptions)},
		AllowSpouseRefund:        calc.AllowSpouseRefund,
		DistanceRefunds:          canonicalRefundTypes(calc.DistanceRefunds),
		SecondNightOnAirplane:    strings.ToUpper(calc.SecondNightOnAirplane),
		SecondNightOnShipOrFerry: strings.ToUpper(calc.SecondNightOnShipOrFerry),
		FallbackLumpSumCountry:   strings.ToUpper(calc.FallbackLumpSumCountry),
		AllowDiscontinuousStages: calc.AllowDiscontinuousStages,
		Location:                 loc,
	}
}

// LoggerSettings returns the logger construction parameters
func (c *Config) LoggerSettings() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}

// canonicalRefundTypes restores the casing viper drops from map keys.
func canonicalRefundTypes(rates map[string]float64) map[string]float64 {
	known := []string{entity.DistanceRefundCar, entity.DistanceRefundMotorcycle, entity.DistanceRefundHalfCar}
	out := make(map[string]float64, len(rates))
	for key, rate := range rates {
		name := key
		for _, k := range known {
			if strings.EqualFold(k, key) {
				name = k
				break
			}
		}
		out[name] = rate
	}
	return out
}

func upper(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.ToUpper(c)
	}
	return out
}
