package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"renovation"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"RENOVATION_PLANNER_ADDRESS" default:":3443"`
	MetricsAddress  string `envconfig:"RENOVATION_PLANNER_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string `envconfig:"RENOVATION_PLANNER_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"RENOVATION_PLANNER_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"RENOVATION_PLANNER_MIGRATIONS_FOLDER" default:""`
	Auth            Auth
	Artifacts       artifactsConfig
	Limits          limitsConfig
}

type limitsConfig struct {
	FreeTierAnalysesPerMonth  int `envconfig:"RENOVATION_PLANNER_FREE_TIER_ANALYSES" default:"3"`
	BasicTierAnalysesPerMonth int `envconfig:"RENOVATION_PLANNER_BASIC_TIER_ANALYSES" default:"25"`
}

type Auth struct {
	AuthenticationType string `envconfig:"RENOVATION_PLANNER_AUTH" default:""`
	LocalSigningKey    string `envconfig:"RENOVATION_PLANNER_SIGNING_KEY" default:""`
}

type artifactsConfig struct {
	Type            string `envconfig:"RENOVATION_PLANNER_ARTIFACTS" default:"local"`
	LocalDir        string `envconfig:"RENOVATION_PLANNER_ARTIFACTS_DIR" default:"/tmp/renderings"`
	Endpoint        string `envconfig:"RENOVATION_PLANNER_S3_ENDPOINT" default:""`
	Bucket          string `envconfig:"RENOVATION_PLANNER_S3_BUCKET" default:"renderings"`
	AccessKey       string `envconfig:"RENOVATION_PLANNER_S3_ACCESS_KEY" default:""`
	SecretAccessKey string `envconfig:"RENOVATION_PLANNER_S3_SECRET_KEY" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config suitable for tests: sqlite in-memory
// store, no auth, local artifacts.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: ":memory:",
		},
		Service: &svcConfig{
			Address:        ":3443",
			MetricsAddress: ":8080",
			LogLevel:       "info",
			Artifacts: artifactsConfig{
				Type:     "local",
				LocalDir: "/tmp/renderings",
			},
		},
	}
}
