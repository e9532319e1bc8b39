package browser

import (
	"fmt"

	"go-jobdigest/internal/config"
)

// NewConnector picks the driver named in the config.
func NewConnector(cfg *config.Config) (Connector, error) {
	switch cfg.Driver {
	case config.DriverPlaywright:
		c := &PlaywrightConnector{}
		if cfg.CookiesPath != "" {
			cookies, err := LoadCookies(cfg.CookiesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load cookies: %w", err)
			}
			c.Cookies = cookies
		}
		return c, nil
	case config.DriverChromedp:
		return &ChromedpConnector{}, nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}
