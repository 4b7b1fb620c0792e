package httputil

import (
	"fmt"
	"time"
)

// ClientConfig configures the http clients talking to the service.
type ClientConfig struct {
	BasicAuth   *BasicAuth    `json:"basicAuth,omitempty"`
	BearerToken string        `json:"bearerToken,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

func (c *ClientConfig) Validate() error {
	if c.BasicAuth != nil && len(c.BearerToken) > 0 {
		return fmt.Errorf("at most one of basic_auth and bearer_token must be configured")
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" {
		return fmt.Errorf("basic_auth requires a username")
	}
	return nil
}

type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}
