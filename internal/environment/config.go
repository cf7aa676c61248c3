package environment

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fiolab/fiorun/internal/xdg"
)

// Config is read once at process start and passed by reference. There
// is no ambient mutable configuration state anywhere else.
type Config struct {
	// FioBinary overrides the binary resolved on PATH.
	FioBinary string

	// ReqSqsUrl is the request queue polled in worker mode.
	ReqSqsUrl string
	// NatsUrl enables NATS response streaming in worker mode when set.
	NatsUrl string
	// NatsSubject is the subject status messages are published to.
	NatsSubject string

	// ArtifactDir is where raw reports are archived.
	ArtifactDir string

	// WallGrace pads the wall-clock guard derived from job runtimes.
	WallGrace time.Duration
}

// ReadEnvConfig loads .env (when present) and assembles the config from
// the environment.
func ReadEnvConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env file: %v", err)
	}

	cfg := &Config{
		FioBinary:   os.Getenv("FIO_BINARY"),
		ReqSqsUrl:   os.Getenv("FIORUN_REQ_SQS_URL"),
		NatsUrl:     os.Getenv("FIORUN_NATS_URL"),
		NatsSubject: os.Getenv("FIORUN_NATS_SUBJECT"),
		ArtifactDir: os.Getenv("FIORUN_ARTIFACT_DIR"),
		WallGrace:   30 * time.Second,
	}

	if cfg.NatsSubject == "" {
		cfg.NatsSubject = "fiorun.results"
	}
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = xdg.AppCacheDir("fiorun")
	}
	if v := os.Getenv("FIO_WALL_GRACE"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("ignoring invalid FIO_WALL_GRACE %q: %v", v, err)
		} else {
			cfg.WallGrace = time.Duration(secs) * time.Second
		}
	}

	return cfg
}
