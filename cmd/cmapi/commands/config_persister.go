package commands

import (
	"fmt"
	"sync"
	"time"
)

// ConfigPersister implements the auth.ConfigPersister interface by caching tokens
// in the configuration file.
type ConfigPersister struct {
	mutex sync.Mutex
	path  func() (string, error)
}

// NewConfigPersister creates a persister writing to the active configuration file.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{path: configFilePath}
}

func newFileConfigPersister(configFile string) *ConfigPersister {
	return &ConfigPersister{path: func() (string, error) { return configFile, nil }}
}

// SaveToken stores token and its expiry, leaving every other setting untouched.
func (p *ConfigPersister) SaveToken(token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	configFile, err := p.path()
	if err != nil {
		return err
	}

	config, err := readConfigFile(configFile)
	if err != nil {
		return err
	}

	config.Token = token
	config.TokenExpiresAt = nil

	if !expiresAt.IsZero() {
		expiry := expiresAt.UTC()
		config.TokenExpiresAt = &expiry
	}

	err = writeConfigFile(configFile, config)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	return nil
}
