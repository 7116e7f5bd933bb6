package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MaxAnalysisTimeout bounds the outbound analysis call.
	MaxAnalysisTimeout = 9 * time.Minute

	defaultPublicSummaryTTL  = 30 * 24 * time.Hour
	defaultConfigPath        = "config/config.yaml"
	defaultWorkerConcurrency = 4
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	RecordStore       string
	DatabaseURL       string
	FirebaseProjectID string

	ObjectStoreType string
	LocalStoreDir   string
	LocalWatch      bool
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	AnalysisServiceURL   string
	AnalysisServiceToken string
	AnalysisTimeout      time.Duration

	PushProvider     string
	WebAppURL        string
	PublicSummaryTTL time.Duration
	InternalToken    string
	JWTSecret        string

	QueueURL          string
	WorkerConcurrency int
}

// fileConfig mirrors the optional YAML config file. Every field is optional;
// environment variables take precedence.
type fileConfig struct {
	Port                   string   `yaml:"port"`
	CORSAllowOrigins       []string `yaml:"cors_allow_origins"`
	Env                    string   `yaml:"env"`
	RecordStore            string   `yaml:"record_store"`
	FirebaseProjectID      string   `yaml:"firebase_project_id"`
	ObjectStore            string   `yaml:"object_store"`
	LocalStoreDir          string   `yaml:"local_store_dir"`
	LocalWatch             *bool    `yaml:"local_watch"`
	AWSRegion              string   `yaml:"aws_region"`
	S3Bucket               string   `yaml:"s3_bucket"`
	S3Prefix               string   `yaml:"s3_prefix"`
	MinioEndpoint          string   `yaml:"minio_endpoint"`
	MinioBucket            string   `yaml:"minio_bucket"`
	AnalysisServiceURL     string   `yaml:"analysis_service_url"`
	AnalysisTimeoutSeconds int      `yaml:"analysis_timeout_seconds"`
	PushProvider           string   `yaml:"push_provider"`
	WebAppURL              string   `yaml:"web_app_url"`
	PublicSummaryTTLHours  int      `yaml:"public_summary_ttl_hours"`
	QueueURL               string   `yaml:"queue_url"`
	WorkerConcurrency      int      `yaml:"worker_concurrency"`
}

// Load reads configuration from environment variables, an optional YAML file
// and sensible defaults, in that order of precedence.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	configPath := getEnv("CONFIG_PATH", defaultConfigPath)
	file, err := loadFileConfig(configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: load %s failed (using env and defaults): %v", configPath, err)
	}

	env := normalizeEnv(firstNonEmpty(os.Getenv("ENV"), file.Env, "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	recordStore := normalizeRecordStore(firstNonEmpty(os.Getenv("RECORD_STORE"), file.RecordStore), dbURL)

	if env == "production" && recordStore == "memory" {
		log.Printf("config: RECORD_STORE=memory in production; records will not survive restarts")
	}

	cors := splitAndTrim(os.Getenv("CORS_ALLOW_ORIGINS"))
	if len(cors) == 0 {
		cors = file.CORSAllowOrigins
	}
	if len(cors) == 0 {
		cors = []string{"http://localhost:3000"}
	}

	localWatch := false
	if file.LocalWatch != nil {
		localWatch = *file.LocalWatch
	}
	localWatch = parseBoolEnvDefault("LOCAL_WATCH", localWatch)

	timeoutSeconds := envInt("ANALYSIS_TIMEOUT_SECONDS", file.AnalysisTimeoutSeconds)
	ttlHours := envInt("PUBLIC_SUMMARY_TTL_HOURS", file.PublicSummaryTTLHours)

	return Config{
		Port:            firstNonEmpty(os.Getenv("PORT"), file.Port, "8080"),
		CORSAllowOrigin: cors,
		Env:             env,

		RecordStore:       recordStore,
		DatabaseURL:       dbURL,
		FirebaseProjectID: firstNonEmpty(os.Getenv("FIREBASE_PROJECT_ID"), file.FirebaseProjectID, os.Getenv("GOOGLE_CLOUD_PROJECT")),

		ObjectStoreType: normalizeStoreType(firstNonEmpty(os.Getenv("OBJECT_STORE"), file.ObjectStore, "local")),
		LocalStoreDir:   firstNonEmpty(os.Getenv("LOCAL_STORE_DIR"), file.LocalStoreDir, "./data"),
		LocalWatch:      localWatch,
		AWSRegion:       firstNonEmpty(os.Getenv("AWS_REGION"), file.AWSRegion),
		S3Bucket:        firstNonEmpty(os.Getenv("S3_BUCKET"), file.S3Bucket),
		S3Prefix:        firstNonEmpty(os.Getenv("S3_PREFIX"), file.S3Prefix),
		SSEKMSKeyID:     os.Getenv("SSE_KMS_KEY_ID"),
		MinioEndpoint:   firstNonEmpty(os.Getenv("MINIO_ENDPOINT"), file.MinioEndpoint, "localhost:9000"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:     firstNonEmpty(os.Getenv("MINIO_BUCKET"), file.MinioBucket, "voice-calls"),
		MinioUseSSL:     parseBoolEnvDefault("MINIO_USE_SSL", false),

		AnalysisServiceURL:   strings.TrimRight(firstNonEmpty(os.Getenv("ANALYSIS_SERVICE_URL"), file.AnalysisServiceURL), "/"),
		AnalysisServiceToken: os.Getenv("ANALYSIS_SERVICE_TOKEN"),
		AnalysisTimeout:      ClampAnalysisTimeout(time.Duration(timeoutSeconds) * time.Second),

		PushProvider:     normalizePushProvider(firstNonEmpty(os.Getenv("PUSH_PROVIDER"), file.PushProvider)),
		WebAppURL:        strings.TrimRight(firstNonEmpty(os.Getenv("WEB_APP_URL"), file.WebAppURL, "http://localhost:3000"), "/"),
		PublicSummaryTTL: publicSummaryTTL(ttlHours),
		InternalToken:    os.Getenv("RELAY_INTERNAL_TOKEN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),

		QueueURL:          firstNonEmpty(os.Getenv("RELAY_QUEUE_URL"), file.QueueURL),
		WorkerConcurrency: workerConcurrency(envInt("RELAY_WORKER_CONCURRENCY", file.WorkerConcurrency)),
	}
}

// ClampAnalysisTimeout applies the default and the upper bound to an
// analysis call timeout.
func ClampAnalysisTimeout(d time.Duration) time.Duration {
	if d <= 0 || d > MaxAnalysisTimeout {
		return MaxAnalysisTimeout
	}
	return d
}

func workerConcurrency(n int) int {
	if n <= 0 {
		return defaultWorkerConcurrency
	}
	return n
}

func publicSummaryTTL(hours int) time.Duration {
	if hours <= 0 {
		return defaultPublicSummaryTTL
	}
	return time.Duration(hours) * time.Hour
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", "":
	default:
		return cfg, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func parseBoolEnvDefault(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeRecordStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "firestore":
		return "firestore"
	case "memory":
		return "memory"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "memory"
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizePushProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fcm", "firebase":
		return "fcm"
	default:
		return "none"
	}
}
