package config

import (
	"fmt"
	"strconv"
	"time"

	"sco-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Game      GameConfig
	Storage   StorageConfig
	Catalog   CatalogConfig
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds the secret shared with the identity service that issues
// player tokens.
type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	Issuer          string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

type GameConfig struct {
	MinPlayers    int
	MaxPlayers    int
	StartingGold  float64
	StartingIron  float64
	SensorRange   int
	TurnInterval  time.Duration
	AutoResolve   bool
	SchedulerTick time.Duration

	SystemsPerArm     int
	MinCellsPerSystem int
	MaxCellsPerSystem int
	CoreCells         int
	PlanetChance      float64
	FairnessRadius    int
	MaxMapAttempts    int
}

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
	StorageSQLite   StorageBackend = "sqlite"
	StorageFile     StorageBackend = "file"
	StorageRedis    StorageBackend = "redis"
)

type StorageConfig struct {
	Backend     StorageBackend
	Path        string
	Compression string
}

// CatalogConfig points at an optional YAML file replacing the built-in items.
type CatalogConfig struct {
	Path string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Game:      loadGameConfig(),
		Storage:   loadStorageConfig(),
		Catalog:   CatalogConfig{Path: utils.GetEnv("CATALOG_PATH", "")},
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "false") == "true"
	redisURL := utils.GetEnv("REDIS_URL", "")

	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))
	lockTTL, _ := strconv.Atoi(utils.GetEnv("REDIS_LOCK_TTL_SECONDS", "30"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      redisURL,
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
		LockTTL:  time.Duration(lockTTL) * time.Second,
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "sco"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadAuthConfig() AuthConfig {
	tokenExpiration, _ := strconv.Atoi(utils.GetEnv("JWT_EXPIRATION_HOURS", "24"))

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(tokenExpiration) * time.Hour,
		Issuer:          utils.GetEnv("JWT_ISSUER", ""),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	format := utils.GetEnv("LOG_FORMAT", "text")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     format,
		JSONFormat: environment == "production" || format == "json",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
	}
}

func loadGameConfig() GameConfig {
	minPlayers, _ := strconv.Atoi(utils.GetEnv("GAME_MIN_PLAYERS", "1"))
	maxPlayers, _ := strconv.Atoi(utils.GetEnv("GAME_MAX_PLAYERS", "8"))
	startingGold, _ := strconv.ParseFloat(utils.GetEnv("GAME_STARTING_GOLD", "2000"), 64)
	startingIron, _ := strconv.ParseFloat(utils.GetEnv("GAME_STARTING_IRON", "300"), 64)
	sensorRange, _ := strconv.Atoi(utils.GetEnv("GAME_SENSOR_RANGE", "2"))
	turnInterval, _ := strconv.Atoi(utils.GetEnv("GAME_TURN_INTERVAL_MINUTES", "1440"))
	schedulerTick, _ := strconv.Atoi(utils.GetEnv("GAME_SCHEDULER_TICK_SECONDS", "30"))

	systemsPerArm, _ := strconv.Atoi(utils.GetEnv("MAP_SYSTEMS_PER_ARM", "3"))
	minCells, _ := strconv.Atoi(utils.GetEnv("MAP_MIN_CELLS_PER_SYSTEM", "3"))
	maxCells, _ := strconv.Atoi(utils.GetEnv("MAP_MAX_CELLS_PER_SYSTEM", "6"))
	coreCells, _ := strconv.Atoi(utils.GetEnv("MAP_CORE_CELLS", "6"))
	planetChance, _ := strconv.ParseFloat(utils.GetEnv("MAP_PLANET_CHANCE", "0.6"), 64)
	fairnessRadius, _ := strconv.Atoi(utils.GetEnv("MAP_FAIRNESS_RADIUS", "3"))
	maxAttempts, _ := strconv.Atoi(utils.GetEnv("MAP_MAX_ATTEMPTS", "8"))

	return GameConfig{
		MinPlayers:        minPlayers,
		MaxPlayers:        maxPlayers,
		StartingGold:      startingGold,
		StartingIron:      startingIron,
		SensorRange:       sensorRange,
		TurnInterval:      time.Duration(turnInterval) * time.Minute,
		AutoResolve:       utils.GetEnv("GAME_AUTO_RESOLVE", "false") == "true",
		SchedulerTick:     time.Duration(schedulerTick) * time.Second,
		SystemsPerArm:     systemsPerArm,
		MinCellsPerSystem: minCells,
		MaxCellsPerSystem: maxCells,
		CoreCells:         coreCells,
		PlanetChance:      planetChance,
		FairnessRadius:    fairnessRadius,
		MaxMapAttempts:    maxAttempts,
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:     StorageBackend(utils.GetEnv("STORAGE_BACKEND", string(StorageMemory))),
		Path:        utils.GetEnv("STORAGE_PATH", "data/games.db"),
		Compression: utils.GetEnv("STORAGE_COMPRESSION", "zstd"),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres backend")
		}
	case StorageSQLite, StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("STORAGE_PATH is required for the %s backend", c.Storage.Backend)
		}
	case StorageRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("REDIS_ENABLED must be true for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if c.Game.MinPlayers < 1 || c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("invalid player limits [%d, %d]", c.Game.MinPlayers, c.Game.MaxPlayers)
	}

	if c.Game.StartingGold < 0 || c.Game.StartingIron < 0 {
		return fmt.Errorf("starting stock must not be negative")
	}

	if c.Game.SensorRange < 0 {
		return fmt.Errorf("GAME_SENSOR_RANGE must not be negative")
	}

	if c.Game.AutoResolve && c.Game.SchedulerTick <= 0 {
		return fmt.Errorf("GAME_SCHEDULER_TICK_SECONDS must be positive when auto resolve is on")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
