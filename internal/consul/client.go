// Package consul registers the API and the email worker with a Consul agent
// and looks up healthy instances of sibling services.
package consul

import (
	consulapi "github.com/hashicorp/consul/api"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
)

// Client wraps the Consul API client
type Client struct {
	api *consulapi.Client
}

// NewClient creates a Consul client from cfg. An empty token disables ACL
// authentication.
func NewClient(cfg config.ConsulConfig) (*Client, error) {
	apiCfg := consulapi.DefaultConfig()
	apiCfg.Address = cfg.Addr

	if cfg.Token != "" {
		apiCfg.Token = cfg.Token
	}

	client, err := consulapi.NewClient(apiCfg)
	if err != nil {
		return nil, err
	}

	return &Client{api: client}, nil
}
