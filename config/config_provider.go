package config

import (
	"errors"
	"strings"

	"github.com/unblurai/unblur/pkg/limiter"
	"github.com/unblurai/unblur/pkg/otel"
	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/provider/openai"
	"github.com/unblurai/unblur/pkg/router/roundrobin"
)

const DefaultModel = "glm-4.5v"

type providerConfig struct {
	Type string `yaml:"type"`

	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	Model string `yaml:"model"`
	Limit *int   `yaml:"limit"`
}

// registerProviders builds one completer per provider and spreads requests
// over them when more than one is configured.
func (c *Config) registerProviders(f *configFile) error {
	if len(f.Providers) == 0 {
		return errors.New("at least one provider is required")
	}

	var completers []provider.Completer

	for _, p := range f.Providers {
		completer, err := createCompleter(p)

		if err != nil {
			return err
		}

		completers = append(completers, completer)
	}

	if len(completers) == 1 {
		c.Completer = completers[0]
		return nil
	}

	completer, err := roundrobin.NewCompleter(completers...)

	if err != nil {
		return err
	}

	c.Completer = completer

	return nil
}

func createCompleter(cfg providerConfig) (provider.Completer, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	var completer provider.Completer
	var err error

	switch strings.ToLower(cfg.Type) {
	case "openai", "openai-compatible", "zhipuai":
		completer, err = openaiCompleter(cfg)

	default:
		return nil, errors.New("invalid provider type: " + cfg.Type)
	}

	if err != nil {
		return nil, err
	}

	if cfg.Limit != nil {
		completer = limiter.NewCompleter(createLimiter(cfg.Limit), completer)
	}

	return otel.NewCompleter(strings.ToLower(cfg.Type), cfg.Model, completer), nil
}

func openaiCompleter(cfg providerConfig) (provider.Completer, error) {
	var options []openai.Option

	if cfg.Token != "" {
		options = append(options, openai.WithToken(cfg.Token))
	}

	return openai.NewCompleter(cfg.URL, cfg.Model, options...)
}
