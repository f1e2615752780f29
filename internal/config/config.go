package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Storage StorageConfig `mapstructure:"storage"`
	Upload  UploadConfig  `mapstructure:"upload"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// BackendConfig 远程索引/问答服务
type BackendConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	QuestionType string        `mapstructure:"question_type"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type UploadConfig struct {
	AcceptExtensions []string      `mapstructure:"accept_extensions"`
	PreviewCacheTTL  time.Duration `mapstructure:"preview_cache_ttl"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RAGPDF")

	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Minute)
	viper.SetDefault("server.max_header_bytes", 1<<20)
	viper.SetDefault("backend.base_url", "http://localhost:8000")
	viper.SetDefault("backend.timeout", 60*time.Second)
	viper.SetDefault("backend.question_type", "semantic")
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("upload.accept_extensions", []string{".pdf"})
	viper.SetDefault("upload.preview_cache_ttl", 5*time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	if err := viper.ReadInConfig(); err != nil {
		// 配置文件缺失时使用默认值，其余错误向上返回
		if _, statErr := os.Stat(configPath); !os.IsNotExist(statErr) {
			return nil, err
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，未设置时允许环境变量覆盖后端地址
	if baseURL := os.Getenv("RAG_BACKEND_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}

	return cfg, nil
}

func Get() *Config {
	return cfg
}
