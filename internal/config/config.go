package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	StoreBackend   string
	DBSource       string
	BoltPath       string
	Port           string
	UserServiceURL string
	BookServiceURL string
	ClientTimeout  time.Duration
	SweepInterval  time.Duration
	Env            string
}

func Load() (*Config, error) {
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "postgres"
	}
	if backend != "postgres" && backend != "bolt" {
		return nil, fmt.Errorf("STORE_BACKEND must be postgres or bolt, got %q", backend)
	}

	dbSource := os.Getenv("DB_SOURCE")
	if backend == "postgres" && dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	boltPath := os.Getenv("BOLT_PATH")
	if boltPath == "" {
		boltPath = "loans.db"
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8083"
	}

	userURL := os.Getenv("USER_SERVICE_URL")
	if userURL == "" {
		userURL = "http://user-service:8081/api/users"
	}

	bookURL := os.Getenv("BOOK_SERVICE_URL")
	if bookURL == "" {
		bookURL = "http://book-service:8082/api/books"
	}

	clientTimeout := 5 * time.Second
	if v := os.Getenv("HTTP_CLIENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT: %w", err)
		}
		clientTimeout = d
	}

	sweepInterval := 10 * time.Minute
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
		sweepInterval = d
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &Config{
		StoreBackend:   backend,
		DBSource:       dbSource,
		BoltPath:       boltPath,
		Port:           port,
		UserServiceURL: userURL,
		BookServiceURL: bookURL,
		ClientTimeout:  clientTimeout,
		SweepInterval:  sweepInterval,
		Env:            env,
	}, nil
}
