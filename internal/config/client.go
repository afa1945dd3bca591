package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultBaseURL is where the client looks for the auth service.
const DefaultBaseURL = "http://localhost:8080"

// Client holds the client's settings.
type Client struct {
	BaseURL        string        `json:"url"`
	CredentialPath string        `json:"credentials"`
	CAFile         string        `json:"ca"`
	Timeout        time.Duration `json:"-"`
	LogLevel       string        `json:"log_level"`
}

// DefaultClient returns the built-in client settings. An empty
// CredentialPath selects the per-user default location.
func DefaultClient() Client {
	return Client{
		BaseURL:  DefaultBaseURL,
		Timeout:  10 * time.Second,
		LogLevel: "warn",
	}
}

// LoadClient returns the defaults overlaid with the JSON file at path (if
// any) and then the environment.
func LoadClient(path string) (Client, error) {
	c := DefaultClient()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return c, err
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Client) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	var f struct {
		Client
		Timeout string `json:"timeout"`
	}
	f.Client = *c
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	*c = f.Client
	if err := setDuration(&c.Timeout, f.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

func (c *Client) applyEnv() {
	if v := os.Getenv("SESSIONGATE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SESSIONGATE_CREDENTIALS"); v != "" {
		c.CredentialPath = v
	}
}
