package backend

import (
	"fmt"

	"github.com/Richmiz/Coinlytics/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath:    appConfig.SQLiteDBPath,
		AMQPURL:         appConfig.AMQPURL,
		AMQPExchange:    appConfig.AMQPExchange,
		AMQPExportQueue: appConfig.AMQPExportQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("sqlite database path is required for sqlite backend")
		}
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for sqlite backend")
		}
		if c.AMQPExchange == "" || c.AMQPExportQueue == "" {
			return fmt.Errorf("AMQP exchange and export queue are required for sqlite backend")
		}

	case MemoryBackend:
		// Nothing extra to validate.
	}

	return nil
}
