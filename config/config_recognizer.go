package config

import (
	"github.com/unblurai/unblur/pkg/recognizer"
)

type recognizerConfig struct {
	Prompt string `yaml:"prompt"`
	Label  string `yaml:"label"`

	MaxSize  int64 `yaml:"max_size"`
	Thinking *bool `yaml:"thinking"`
}

func (c *Config) registerRecognizer(f *configFile) error {
	cfg := f.Recognizer

	var options []recognizer.Option

	if cfg.Prompt != "" {
		options = append(options, recognizer.WithPrompt(cfg.Prompt))
	}

	if cfg.Label != "" {
		options = append(options, recognizer.WithLabel(cfg.Label))
	}

	if cfg.MaxSize > 0 {
		options = append(options, recognizer.WithMaxSize(cfg.MaxSize))
	}

	if cfg.Thinking != nil {
		options = append(options, recognizer.WithThinking(*cfg.Thinking))
	}

	r, err := recognizer.New(c.Completer, options...)

	if err != nil {
		return err
	}

	c.Recognizer = r

	return nil
}
