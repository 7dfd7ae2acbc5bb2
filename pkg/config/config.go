package config

import (
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

// Notify holds delivery settings for the notifier. A channel is considered
// enabled when its credentials are present.
type Notify struct {
    SMTPHost      string
    SMTPPort      int
    EmailAddress  string
    EmailPassword string
    UserEmail     string

    TwilioAccountSID string
    TwilioAuthToken  string
    TwilioFromNumber string
    UserPhone        string
}

type Config struct {
    RedisURL    string
    HorizonURL  string
    Network     string // "mainnet" or "testnet"
    HTTPPort    int
    MetricsPort int

    IdleThresholdDays int
    SnapshotTTL       time.Duration
    RiskTolerance     string

    // Agent check intervals
    IdleInterval      time.Duration
    ScoutInterval     time.Duration
    PriceInterval     time.Duration
    RebalanceInterval time.Duration

    AdminJWTSecret string

    Notify Notify
}

// Load reads environment variables and application flags (via a local FlagSet),
// strips out any -test.* flags, and validates required fields.
func Load() (*Config, error) {
    // 1. Build a fresh FlagSet so we don't collide with `go test` flags
    fs := flag.NewFlagSet("config", flag.ContinueOnError)

    var redisURL, horizonURL string
    var httpPort, metricsPort int
    fs.StringVar(&redisURL, "redis", os.Getenv("REDIS_URL"), "Redis connection URL")
    fs.StringVar(&horizonURL, "horizon", os.Getenv("HORIZON_URL"), "Stellar Horizon base URL")
    fs.IntVar(&httpPort, "port", 5000, "HTTP listen port")
    fs.IntVar(&metricsPort, "metrics-port", 5001, "Metrics server port")

    // 2. Filter out any -test.* args before parsing
    var appArgs []string
    for _, arg := range os.Args[1:] {
        if strings.HasPrefix(arg, "-test.") {
            continue
        }
        appArgs = append(appArgs, arg)
    }
    if err := fs.Parse(appArgs); err != nil {
        return nil, err
    }

    cfg := &Config{
        RedisURL:          redisURL,
        HorizonURL:        horizonURL,
        Network:           getEnvOrDefault("STELLAR_NETWORK", "mainnet"),
        HTTPPort:          httpPort,
        MetricsPort:       metricsPort,
        IdleThresholdDays: 30,
        SnapshotTTL:       getDurationEnvOrDefault("SNAPSHOT_TTL", 5*time.Minute),
        RiskTolerance:     getEnvOrDefault("RISK_TOLERANCE", "moderate"),
        IdleInterval:      getDurationEnvOrDefault("IDLE_CHECK_INTERVAL", 5*time.Minute),
        ScoutInterval:     getDurationEnvOrDefault("SCOUT_CHECK_INTERVAL", 5*time.Minute),
        PriceInterval:     getDurationEnvOrDefault("PRICE_CHECK_INTERVAL", 5*time.Minute),
        RebalanceInterval: getDurationEnvOrDefault("REBALANCE_CHECK_INTERVAL", time.Hour),
        AdminJWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
    }

    // PORT env overrides flag/default if set (Heroku-style)
    if portEnv := os.Getenv("PORT"); portEnv != "" {
        if portVal, err := strconv.Atoi(portEnv); err == nil {
            cfg.HTTPPort = portVal
        } else {
            return nil, fmt.Errorf("invalid PORT env var: %v", err)
        }
    }

    if days := os.Getenv("IDLE_THRESHOLD_DAYS"); days != "" {
        if d, err := strconv.Atoi(days); err == nil {
            cfg.IdleThresholdDays = d
        }
    }

    // Default Horizon endpoint follows the selected network
    if cfg.HorizonURL == "" {
        if cfg.Network == "testnet" {
            cfg.HorizonURL = "https://horizon-testnet.stellar.org"
        } else {
            cfg.HorizonURL = "https://horizon.stellar.org"
        }
    }

    cfg.Notify = Notify{
        SMTPHost:         getEnvOrDefault("SMTP_SERVER", "smtp.gmail.com"),
        SMTPPort:         getIntEnvOrDefault("SMTP_PORT", 587),
        EmailAddress:     os.Getenv("EMAIL_ADDRESS"),
        EmailPassword:    os.Getenv("EMAIL_PASSWORD"),
        UserEmail:        os.Getenv("USER_EMAIL"),
        TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
        TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
        TwilioFromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
        UserPhone:        os.Getenv("USER_PHONE"),
    }

    // Validate required fields
    if cfg.RedisURL == "" {
        return nil, fmt.Errorf("missing required config: REDIS_URL or -redis")
    }
    switch cfg.RiskTolerance {
    case "conservative", "moderate", "aggressive":
    default:
        return nil, fmt.Errorf("invalid RISK_TOLERANCE %q", cfg.RiskTolerance)
    }

    return cfg, nil
}

// EmailEnabled reports whether email delivery is configured.
func (n Notify) EmailEnabled() bool {
    return n.EmailAddress != "" && n.EmailPassword != "" && n.UserEmail != ""
}

// SMSEnabled reports whether Twilio SMS delivery is configured.
func (n Notify) SMSEnabled() bool {
    return n.TwilioAccountSID != "" && n.TwilioAuthToken != "" && n.UserPhone != ""
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
    if value := os.Getenv(key); value != "" {
        return value
    }
    return defaultValue
}

// getIntEnvOrDefault returns environment variable as int or default
func getIntEnvOrDefault(key string, defaultValue int) int {
    if value := os.Getenv(key); value != "" {
        if n, err := strconv.Atoi(value); err == nil {
            return n
        }
    }
    return defaultValue
}

// getDurationEnvOrDefault returns environment variable as duration or default
func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
    if value := os.Getenv(key); value != "" {
        if duration, err := time.ParseDuration(value); err == nil {
            return duration
        }
    }
    return defaultValue
}
