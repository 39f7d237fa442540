package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the typed view of the merged configuration.
type Settings struct {
	Mode     string         `mapstructure:"mode"`
	Bot      BotSettings    `mapstructure:"bot"`
	Database DBSettings     `mapstructure:"database"`
	Render   RenderSettings `mapstructure:"render"`
	Commands CommandsConfig `mapstructure:"commands"`
	Log      LogSettings    `mapstructure:"log"`
}

type LogSettings struct {
	// Development switches zap to the human-readable console encoder.
	Development bool `mapstructure:"development"`
}

type BotSettings struct {
	Token          string `mapstructure:"token"`
	AdminChannelID string `mapstructure:"adminChannelId"`
	// HealthProbe is the cron spec for probing the render service.
	HealthProbe string `mapstructure:"healthProbe"`
}

type DBSettings struct {
	Path string `mapstructure:"path"`
}

type RenderSettings struct {
	// Listen is the HTTP listen address of the render service.
	Listen string `mapstructure:"listen"`
	// GRPCListen is the listen address of the gRPC health service.
	GRPCListen string `mapstructure:"grpc_listen"`
	// BaseURL is where the bot reaches the render service.
	BaseURL string `mapstructure:"base_url"`
	// GRPCTarget is where the bot reaches the gRPC health service.
	GRPCTarget     string        `mapstructure:"grpc_target"`
	Headless       bool          `mapstructure:"headless"`
	ChromePath     string        `mapstructure:"chrome_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"admins_roles"`
}

const (
	ModeBot    = "bot"
	ModeRender = "render"
	ModeAll    = "all"
)

func setDefaults() {
	viper.SetDefault("mode", ModeAll)
	viper.SetDefault("log.development", false)
	viper.SetDefault("bot.token", "")
	viper.SetDefault("bot.adminChannelId", "")
	viper.SetDefault("bot.healthProbe", "@every 1m")
	viper.SetDefault("database.path", "data/skullboard.db")
	viper.SetDefault("render.listen", "127.0.0.1:27010")
	viper.SetDefault("render.grpc_listen", "127.0.0.1:27011")
	viper.SetDefault("render.base_url", "http://127.0.0.1:27010")
	viper.SetDefault("render.grpc_target", "127.0.0.1:27011")
	viper.SetDefault("render.headless", true)
	viper.SetDefault("render.request_timeout", 2*time.Minute)
}

// LoadConfig 从多个源加载配置：.env 文件与 config.yaml。
// 配置加载顺序:
// 1. .env 文件 (用于环境变量)
// 2. config.yaml (基础配置)
// 环境变量会覆盖配置文件中的同名设置。
func LoadConfig() {
	// 1. 从 .env 文件加载环境变量，如果文件不存在则忽略。
	if err := godotenv.Load(); err != nil {
		log.Printf("未找到 .env 文件，将跳过加载。")
	}

	setDefaults()

	// 2. 设置并读取基础配置文件 (config.yaml)。
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到是正常情况，可以继续。
			log.Printf("未找到基础配置文件 (config.yaml)，将仅使用环境变量和默认值。")
		} else {
			// 如果找到配置文件但解析出错，则终止程序。
			panic(fmt.Errorf("解析基础配置文件时发生致命错误: %w", err))
		}
	}
}

// Load reads every configuration source and returns the typed settings.
func Load() (*Settings, error) {
	LoadConfig()

	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	switch s.Mode {
	case ModeBot, ModeRender, ModeAll:
	default:
		return nil, fmt.Errorf("unknown mode %q", s.Mode)
	}
	return &s, nil
}
