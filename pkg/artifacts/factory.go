package artifacts

import (
	"fmt"

	"github.com/refurbd/renovation-planner/internal/config"
)

// NewFromConfig picks the backend named in the configuration.
func NewFromConfig(cfg *config.Config) (Store, error) {
	switch cfg.Service.Artifacts.Type {
	case "minio":
		return NewMinioStore(
			WithEndpoint(cfg.Service.Artifacts.Endpoint),
			WithBucket(cfg.Service.Artifacts.Bucket),
			WithAccessKey(cfg.Service.Artifacts.AccessKey),
			WithSecretKey(cfg.Service.Artifacts.SecretAccessKey),
		)
	case "local", "":
		return NewLocalStore(cfg.Service.Artifacts.LocalDir)
	default:
		return nil, fmt.Errorf("unknown artifacts store type: %s", cfg.Service.Artifacts.Type)
	}
}
