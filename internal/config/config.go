// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Warehouse WarehouseConfig
	Analysis  AnalysisConfig
	Proposals ProposalConfig
	Sales     SalesConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
	Drive     DriveConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// WarehouseConfig points at the SQL Server instance holding sales and
// receipt documents.
type WarehouseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Instance       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// AnalysisConfig carries the extraction window, document-type sets and
// classification thresholds used by a rotation run.
type AnalysisConfig struct {
	LookbackDays          int
	RecentWindowDays      int
	StockWarehouseIDs     []int
	SalesWarehouseIDs     []int
	AggregateWarehouseIDs []int
	SaleDocTypes          []int
	ReturnDocTypes        []int
	ExcludedSubtypes      []int
	VoidedStatus          int
	RefreshInterval       time.Duration

	NewProductDays        int
	IntroPeriodDays       int
	NewSellingDays        float64
	VeryFastDays          float64
	FastDays              float64
	NormalDays            float64
	SlowDays              float64
	RepeatedMinDeliveries int
}

type ProposalConfig struct {
	CategoryTag         string
	WarehouseIDs        []int
	MinStockDays        int
	DefaultLeadTimeDays int
	OKMarginRatio       float64
	EstimatedCostRatio  float64
	DefaultVATRate      float64
	CacheTTLSeconds     int
}

// sales history reports read straight from the warehouse.
type SalesConfig struct {
	WarehouseIDs    []int
	SummaryDays     int
	MaxDays         int
	MaxProducts     int
	CacheTTLSeconds int
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Backend   string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type DriveConfig struct {
	CredentialsJSON string
	PeriodsFileID   string
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "rotation")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("SQL_SERVER_HOST", "127.0.0.1")
	viper.SetDefault("SQL_SERVER_PORT", 1433)
	viper.SetDefault("SQL_SERVER_USER", "")
	viper.SetDefault("SQL_SERVER_PASSWORD", "")
	viper.SetDefault("SQL_SERVER_DATABASE", "")
	viper.SetDefault("SQL_SERVER_INSTANCE", "")
	viper.SetDefault("SQL_SERVER_CONNECT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SQL_SERVER_QUERY_TIMEOUT_SECONDS", 300)

	viper.SetDefault("ANALYSIS_LOOKBACK_DAYS", 365)
	viper.SetDefault("ANALYSIS_RECENT_WINDOW_DAYS", 90)
	viper.SetDefault("ANALYSIS_STOCK_WAREHOUSES", "1,3,7,9")
	viper.SetDefault("ANALYSIS_SALES_WAREHOUSES", "1,7,9")
	viper.SetDefault("ANALYSIS_AGGREGATE_WAREHOUSES", "1,2,3,7,9")
	viper.SetDefault("ANALYSIS_SALE_DOC_TYPES", "10,11")
	viper.SetDefault("ANALYSIS_RETURN_DOC_TYPES", "6,14")
	viper.SetDefault("ANALYSIS_EXCLUDED_SUBTYPES", "1")
	viper.SetDefault("ANALYSIS_VOIDED_STATUS", 2)
	viper.SetDefault("ANALYSIS_REFRESH_INTERVAL", "6h")
	viper.SetDefault("ANALYSIS_NEW_PRODUCT_DAYS", 30)
	viper.SetDefault("ANALYSIS_INTRO_PERIOD_DAYS", 90)
	viper.SetDefault("ANALYSIS_NEW_SELLING_DAYS", 90)
	viper.SetDefault("ANALYSIS_VERY_FAST_DAYS", 30)
	viper.SetDefault("ANALYSIS_FAST_DAYS", 90)
	viper.SetDefault("ANALYSIS_NORMAL_DAYS", 180)
	viper.SetDefault("ANALYSIS_SLOW_DAYS", 365)
	viper.SetDefault("ANALYSIS_REPEATED_MIN_DELIVERIES", 2)

	viper.SetDefault("PROPOSALS_CATEGORY_TAG", "SUPLEMENTY")
	viper.SetDefault("PROPOSALS_WAREHOUSES", "1,2,7,9")
	viper.SetDefault("PROPOSALS_MIN_STOCK_DAYS", 30)
	viper.SetDefault("PROPOSALS_DEFAULT_LEAD_TIME_DAYS", 7)
	viper.SetDefault("PROPOSALS_OK_MARGIN_RATIO", 0.2)
	viper.SetDefault("PROPOSALS_ESTIMATED_COST_RATIO", 0.6)
	viper.SetDefault("PROPOSALS_DEFAULT_VAT_RATE", 23)
	viper.SetDefault("PROPOSALS_CACHE_TTL_SECONDS", 600)

	viper.SetDefault("SALES_WAREHOUSES", "1,7,9")
	viper.SetDefault("SALES_SUMMARY_DAYS", 365)
	viper.SetDefault("SALES_MAX_DAYS", 1830)
	viper.SetDefault("SALES_MAX_PRODUCTS", 500)
	viper.SetDefault("SALES_CACHE_TTL_SECONDS", 1800)

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_BACKEND", "minio")
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "rotation-reports")
	viper.SetDefault("STORAGE_REGION", "")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "exports")

	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "rotation.analysis.completed")

	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("DRIVE_PERIODS_FILE_ID", "")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Warehouse: WarehouseConfig{
			Host:           viper.GetString("SQL_SERVER_HOST"),
			Port:           viper.GetInt("SQL_SERVER_PORT"),
			User:           viper.GetString("SQL_SERVER_USER"),
			Password:       viper.GetString("SQL_SERVER_PASSWORD"),
			Database:       viper.GetString("SQL_SERVER_DATABASE"),
			Instance:       viper.GetString("SQL_SERVER_INSTANCE"),
			ConnectTimeout: time.Duration(viper.GetInt("SQL_SERVER_CONNECT_TIMEOUT_SECONDS")) * time.Second,
			QueryTimeout:   time.Duration(viper.GetInt("SQL_SERVER_QUERY_TIMEOUT_SECONDS")) * time.Second,
		},
		Analysis: AnalysisConfig{
			LookbackDays:          viper.GetInt("ANALYSIS_LOOKBACK_DAYS"),
			RecentWindowDays:      viper.GetInt("ANALYSIS_RECENT_WINDOW_DAYS"),
			StockWarehouseIDs:     mustIntList("ANALYSIS_STOCK_WAREHOUSES"),
			SalesWarehouseIDs:     mustIntList("ANALYSIS_SALES_WAREHOUSES"),
			AggregateWarehouseIDs: mustIntList("ANALYSIS_AGGREGATE_WAREHOUSES"),
			SaleDocTypes:          mustIntList("ANALYSIS_SALE_DOC_TYPES"),
			ReturnDocTypes:        mustIntList("ANALYSIS_RETURN_DOC_TYPES"),
			ExcludedSubtypes:      mustIntList("ANALYSIS_EXCLUDED_SUBTYPES"),
			VoidedStatus:          viper.GetInt("ANALYSIS_VOIDED_STATUS"),
			RefreshInterval:       viper.GetDuration("ANALYSIS_REFRESH_INTERVAL"),
			NewProductDays:        viper.GetInt("ANALYSIS_NEW_PRODUCT_DAYS"),
			IntroPeriodDays:       viper.GetInt("ANALYSIS_INTRO_PERIOD_DAYS"),
			NewSellingDays:        viper.GetFloat64("ANALYSIS_NEW_SELLING_DAYS"),
			VeryFastDays:          viper.GetFloat64("ANALYSIS_VERY_FAST_DAYS"),
			FastDays:              viper.GetFloat64("ANALYSIS_FAST_DAYS"),
			NormalDays:            viper.GetFloat64("ANALYSIS_NORMAL_DAYS"),
			SlowDays:              viper.GetFloat64("ANALYSIS_SLOW_DAYS"),
			RepeatedMinDeliveries: viper.GetInt("ANALYSIS_REPEATED_MIN_DELIVERIES"),
		},
		Proposals: ProposalConfig{
			CategoryTag:         viper.GetString("PROPOSALS_CATEGORY_TAG"),
			WarehouseIDs:        mustIntList("PROPOSALS_WAREHOUSES"),
			MinStockDays:        viper.GetInt("PROPOSALS_MIN_STOCK_DAYS"),
			DefaultLeadTimeDays: viper.GetInt("PROPOSALS_DEFAULT_LEAD_TIME_DAYS"),
			OKMarginRatio:       viper.GetFloat64("PROPOSALS_OK_MARGIN_RATIO"),
			EstimatedCostRatio:  viper.GetFloat64("PROPOSALS_ESTIMATED_COST_RATIO"),
			DefaultVATRate:      viper.GetFloat64("PROPOSALS_DEFAULT_VAT_RATE"),
			CacheTTLSeconds:     viper.GetInt("PROPOSALS_CACHE_TTL_SECONDS"),
		},
		Sales: SalesConfig{
			WarehouseIDs:    mustIntList("SALES_WAREHOUSES"),
			SummaryDays:     viper.GetInt("SALES_SUMMARY_DAYS"),
			MaxDays:         viper.GetInt("SALES_MAX_DAYS"),
			MaxProducts:     viper.GetInt("SALES_MAX_PRODUCTS"),
			CacheTTLSeconds: viper.GetInt("SALES_CACHE_TTL_SECONDS"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Backend:   viper.GetString("STORAGE_BACKEND"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			PeriodsFileID:   viper.GetString("DRIVE_PERIODS_FILE_ID"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

// DSN returns the Postgres connection string, preferring DATABASE_URL.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ParseIntList parses a comma separated list of integers such as "6,14".
func ParseIntList(raw string) ([]int, error) {
	parts := splitList(raw)
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", part, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func mustIntList(key string) []int {
	values, err := ParseIntList(viper.GetString(key))
	if err != nil {
		panic(fmt.Sprintf("config %s: %v", key, err))
	}
	return values
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
