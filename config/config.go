package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultRPCTimeout = Duration(10 * time.Second)

var (
	ErrMissingRPCHost       = errors.New("eth.rpc.host is required")
	ErrMissingTelegramToken = errors.New("telegram.token is required")
	ErrMissingTelegramChat  = errors.New("telegram.chat_id is required")
)

type RPCConfig struct {
	Host    string   `yaml:"host"`
	Timeout Duration `yaml:"timeout"`
}

type EthConfig struct {
	RPC *RPCConfig `yaml:"rpc"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	Eth       *EthConfig       `yaml:"eth"`
	Telegram  *TelegramConfig  `yaml:"telegram"`
	LogLevel  Level            `yaml:"log_level"`
	Presenter *PresenterConfig `yaml:"presenter"`
}

func (cfg *Config) init() error {
	if cfg.Eth == nil || cfg.Eth.RPC == nil || cfg.Eth.RPC.Host == "" {
		return ErrMissingRPCHost
	}
	if cfg.Eth.RPC.Timeout == 0 {
		cfg.Eth.RPC.Timeout = defaultRPCTimeout
	}
	if cfg.Telegram == nil || cfg.Telegram.Token == "" {
		return ErrMissingTelegramToken
	}
	if cfg.Telegram.ChatID == 0 {
		return ErrMissingTelegramChat
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = Level(logrus.InfoLevel)
	}
	return nil
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfigWithEnv substitutes ${VAR} references in the raw config
// before parsing, so secrets can stay in the environment.
func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}
