package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environnements reconnus
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config contient toutes les configurations de l'application
type Config struct {
	Port        string
	Host        string
	Environment string
	LogLevel    string
	TrustProxy  bool
	MongoURI    string
	MongoDB     string
	CORSOrigins []string

	JWTSecret      string
	UserTokenTTL   time.Duration
	AdminJWTSecret string
	AdminTokenTTL  time.Duration
	GoogleClientID string

	Pricing  PricingConfig
	Batch    BatchConfig
	Media    MediaConfig
	Login    LoginLimitConfig
	RedisURL string
	Firebase FirebaseConfig
	SlackURL string
}

// PricingConfig définit les montants d'inscription (en roupies)
type PricingConfig struct {
	BasePrice  int64
	AddonPrice int64
}

// BatchConfig définit la règle d'admission sur l'année de promotion.
// AllowedYear prime sur l'intervalle quand il est renseigné.
type BatchConfig struct {
	AllowedYear string
	MinYear     int
	MaxYear     int
}

// MediaConfig regroupe les identifiants Cloudinary
type MediaConfig struct {
	CloudName  string
	APIKey     string
	APISecret  string
	RootFolder string
	MaxBytes   int64
	Timeout    time.Duration
	BaseURL    string
}

// LoginLimitConfig borne les échecs de connexion admin
type LoginLimitConfig struct {
	MaxFailures int
	Window      time.Duration
}

// FirebaseConfig pour les notifications FCM aux admins
type FirebaseConfig struct {
	CredentialsFile string
	CredentialsJSON string
	AdminTopic      string
}

// IsProduction indique si l'application tourne en production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load charge la configuration depuis les variables d'environnement
func Load() (*Config, error) {
	// Charger le fichier .env s'il existe
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Port:           v.GetString("PORT"),
		Host:           v.GetString("HOST"),
		Environment:    v.GetString("ENVIRONMENT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		TrustProxy:     v.GetBool("TRUST_PROXY"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDB:        v.GetString("MONGO_DB"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		UserTokenTTL:   v.GetDuration("USER_TOKEN_TTL"),
		AdminJWTSecret: v.GetString("ADMIN_JWT_SECRET"),
		AdminTokenTTL:  v.GetDuration("ADMIN_TOKEN_TTL"),
		GoogleClientID: v.GetString("GOOGLE_CLIENT_ID"),
		Pricing: PricingConfig{
			BasePrice:  v.GetInt64("BASE_PRICE"),
			AddonPrice: v.GetInt64("ADDON_PRICE"),
		},
		Batch: BatchConfig{
			AllowedYear: strings.TrimSpace(v.GetString("BATCH_ALLOWED_YEAR")),
			MinYear:     v.GetInt("BATCH_MIN_YEAR"),
			MaxYear:     v.GetInt("BATCH_MAX_YEAR"),
		},
		Media: MediaConfig{
			CloudName:  v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:     v.GetString("CLOUDINARY_API_KEY"),
			APISecret:  v.GetString("CLOUDINARY_API_SECRET"),
			RootFolder: v.GetString("MEDIA_ROOT_FOLDER"),
			MaxBytes:   v.GetInt64("MEDIA_MAX_BYTES"),
			Timeout:    v.GetDuration("MEDIA_TIMEOUT"),
			BaseURL:    v.GetString("CLOUDINARY_BASE_URL"),
		},
		Login: LoginLimitConfig{
			MaxFailures: v.GetInt("ADMIN_LOGIN_MAX_FAILURES"),
			Window:      v.GetDuration("ADMIN_LOGIN_WINDOW"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		Firebase: FirebaseConfig{
			CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
			CredentialsJSON: v.GetString("FIREBASE_CREDENTIALS_JSON"),
			AdminTopic:      v.GetString("FCM_ADMIN_TOPIC"),
		},
		SlackURL: v.GetString("SLACK_WEBHOOK_URL"),
	}

	// ALLOWED_ORIGINS est l'ancien nom de la variable
	origins := v.GetString("CORS_ALLOWED_ORIGINS")
	if legacy := v.GetString("ALLOWED_ORIGINS"); origins == "" && legacy != "" {
		origins = legacy
	}
	if origins == "" {
		origins = "http://localhost:3000"
	}
	config.CORSOrigins = splitAndTrim(origins)

	// Valider les configurations critiques
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET est requis")
	}
	if config.AdminJWTSecret == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET est requis")
	}
	if config.Batch.MinYear > config.Batch.MaxYear {
		return nil, fmt.Errorf("BATCH_MIN_YEAR (%d) doit être inférieur à BATCH_MAX_YEAR (%d)", config.Batch.MinYear, config.Batch.MaxYear)
	}
	if config.Login.MaxFailures <= 0 {
		return nil, fmt.Errorf("ADMIN_LOGIN_MAX_FAILURES doit être positif")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8090")
	v.SetDefault("HOST", "0.0.0.0") // 0.0.0.0 pour serveur cloud
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRUST_PROXY", false) // true derrière un reverse proxy (X-Forwarded-For)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "silver_jubilee")
	v.SetDefault("USER_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("ADMIN_TOKEN_TTL", time.Hour)
	v.SetDefault("BASE_PRICE", 10000)
	v.SetDefault("ADDON_PRICE", 5000)
	v.SetDefault("BATCH_MIN_YEAR", 1956)
	v.SetDefault("BATCH_MAX_YEAR", 2028)
	v.SetDefault("MEDIA_ROOT_FOLDER", "silverjubilee")
	v.SetDefault("MEDIA_MAX_BYTES", 8<<20)
	v.SetDefault("MEDIA_TIMEOUT", 30*time.Second)
	v.SetDefault("CLOUDINARY_BASE_URL", "https://api.cloudinary.com")
	v.SetDefault("ADMIN_LOGIN_MAX_FAILURES", 5)
	v.SetDefault("ADMIN_LOGIN_WINDOW", 5*time.Minute)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FCM_ADMIN_TOPIC", "admins")
}

// splitAndTrim découpe une liste séparée par des virgules
func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
