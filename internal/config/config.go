package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix 是本服务自有环境变量的前缀，例如 LEXDESK_INFERENCE_URL。
const envPrefix = "LEXDESK"

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Inference InferenceConfig
	AI        AIConfig
	Storage   StorageConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。调用方负责先加载 .env 文件。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	var inference InferenceConfig
	if err := envconfig.Process(envPrefix, &inference); err != nil {
		return nil, fmt.Errorf("failed to process inference config: %w", err)
	}
	if err := inference.validate(); err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	var storage StorageConfig
	if err := envconfig.Process(envPrefix, &storage); err != nil {
		return nil, fmt.Errorf("failed to process storage config: %w", err)
	}
	if err := storage.validate(); err != nil {
		return nil, err
	}

	var logCfg LogConfig
	if err := envconfig.Process(envPrefix, &logCfg); err != nil {
		return nil, fmt.Errorf("failed to process log config: %w", err)
	}

	return &Config{Server: server, Inference: inference, AI: ai, Storage: storage, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault(envPrefix+"_CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"))

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, CORSOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigins: origins}, nil
}

// InferenceConfig 描述远端法律推理 API。
type InferenceConfig struct {
	BaseURL        string        `envconfig:"INFERENCE_URL" default:"http://localhost:8000"`
	Timeout        time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"60s"`
	MaxRetries     uint64        `envconfig:"INFERENCE_MAX_RETRIES" default:"2"`
	BaseBackoff    time.Duration `envconfig:"INFERENCE_BACKOFF" default:"200ms"`
	MaxBackoff     time.Duration `envconfig:"INFERENCE_MAX_BACKOFF" default:"2s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"0s"`
	// ChatBackend 选择聊天后端：remote、ark 或 auto（有 Ark 凭证时使用 ark）。
	ChatBackend string `envconfig:"CHAT_BACKEND" default:"auto"`
}

func (c InferenceConfig) validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid %s_INFERENCE_URL value: %q", envPrefix, c.BaseURL)
	}
	switch c.ChatBackend {
	case "auto", "remote", "ark":
	default:
		return fmt.Errorf("invalid %s_CHAT_BACKEND value: %q", envPrefix, c.ChatBackend)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%s_REQUEST_TIMEOUT must not be negative", envPrefix)
	}
	return nil
}

// StorageConfig 描述历史记录的持久化后端。
type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"file"`
	Path   string `envconfig:"STORAGE_PATH" default:"data/history"`
}

func (c StorageConfig) validate() error {
	switch c.Driver {
	case "memory", "file", "bolt", "sqlite":
	default:
		return fmt.Errorf("unsupported %s_STORAGE_DRIVER: %s", envPrefix, c.Driver)
	}
	if c.Driver != "memory" && strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%s_STORAGE_PATH is required for driver %s", envPrefix, c.Driver)
	}
	return nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AIConfig 描述大模型相关配置。环境变量名沿用 Ark SDK 的约定，不带前缀。
type AIConfig struct {
	APIKey       string   `envconfig:"ARK_API_KEY"`
	AccessKey    string   `envconfig:"ARK_ACCESS_KEY"`
	SecretKey    string   `envconfig:"ARK_SECRET_KEY"`
	Model        string   `envconfig:"MODEL"`
	BaseURL      string   `envconfig:"ARK_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region       string   `envconfig:"ARK_REGION" default:"cn-beijing"`
	Temperature  *float64 `envconfig:"ARK_TEMPERATURE"`
	TopP         *float64 `envconfig:"ARK_TOP_P"`
	MaxTokens    *int     `envconfig:"ARK_MAX_TOKENS"`
	HistoryLimit int      `envconfig:"AI_HISTORY_LIMIT" default:"10"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	var cfg AIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AIConfig{}, fmt.Errorf("failed to process ai config: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	// envconfig 会把键名转为大写，这里兼容沿用下来的 Model 变量。
	if m := strings.TrimSpace(os.Getenv("Model")); m != "" {
		cfg.Model = m
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 1
	}
	return cfg, nil
}

// UseArkChat 决定聊天功能是否走 Ark 模型。
func (c *Config) UseArkChat() bool {
	switch c.Inference.ChatBackend {
	case "ark":
		return true
	case "remote":
		return false
	default:
		return c.AI.Enabled()
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
