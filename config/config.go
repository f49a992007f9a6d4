package config

import (
	"bytes"
	"errors"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/unblurai/unblur/pkg/auth"
	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/recognizer"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address string

	CORSOrigins []string
	SessionTTL  time.Duration

	Authorizers []auth.Provider

	Completer  provider.Completer
	Recognizer *recognizer.Recognizer
}

var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// Parse reads the YAML configuration at path. A missing file falls back to
// the environment (HOST, PORT, ZHIPUAI_API_KEY, ZHIPUAI_BASE_URL, ZHIPUAI_MODEL).
func Parse(path string) (*Config, error) {
	file, err := parseFile(path)

	if errors.Is(err, fs.ErrNotExist) {
		file, err = fromEnvironment()
	}

	if err != nil {
		return nil, err
	}

	return build(file)
}

func build(file *configFile) (*Config, error) {
	c := &Config{
		Address: ":8000",

		CORSOrigins: DefaultCORSOrigins,
		SessionTTL:  24 * time.Hour,
	}

	if file.Address != "" {
		c.Address = file.Address
	}

	if len(file.CORS.Origins) > 0 {
		c.CORSOrigins = file.CORS.Origins
	}

	if file.Session.TTL > 0 {
		c.SessionTTL = file.Session.TTL
	}

	if err := c.registerAuthorizer(file); err != nil {
		return nil, err
	}

	if err := c.registerProviders(file); err != nil {
		return nil, err
	}

	if err := c.registerRecognizer(file); err != nil {
		return nil, err
	}

	return c, nil
}

type configFile struct {
	Address string `yaml:"address"`

	CORS    corsConfig    `yaml:"cors"`
	Session sessionConfig `yaml:"session"`

	Authorizers []authorizerConfig `yaml:"authorizers"`

	Providers []providerConfig `yaml:"providers"`

	Recognizer recognizerConfig `yaml:"recognizer"`
}

type corsConfig struct {
	Origins []string `yaml:"origins"`
}

type sessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

func parseFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return parseData(data)
}

func parseData(data []byte) (*configFile, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var config configFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func fromEnvironment() (*configFile, error) {
	token := os.Getenv("ZHIPUAI_API_KEY")

	if token == "" {
		return nil, errors.New("ZHIPUAI_API_KEY environment variable is required")
	}

	host := os.Getenv("HOST")
	port := os.Getenv("PORT")

	if port == "" {
		port = "8000"
	}

	return &configFile{
		Address: net.JoinHostPort(host, port),

		Providers: []providerConfig{
			{
				Type: "openai",

				URL:   os.Getenv("ZHIPUAI_BASE_URL"),
				Token: token,

				Model: os.Getenv("ZHIPUAI_MODEL"),
			},
		},
	}, nil
}

func createLimiter(limit *int) *rate.Limiter {
	if limit == nil {
		return nil
	}

	return rate.NewLimiter(rate.Limit(*limit), *limit)
}
