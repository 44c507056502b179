package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// TokenConfig Token配置
type TokenConfig struct {
	Token string `yaml:"token" json:"token"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`         // Redis地址
	Password string `yaml:"password" json:"password"` // Redis密码
	DB       int    `yaml:"db" json:"db"`             // Redis数据库
	Service  string `yaml:"service" json:"service"`   // Redis服务名称（key前缀）
}

// DBConfig 数据库配置
type DBConfig struct {
	Dialect string `yaml:"dialect" json:"dialect"` // 数据库类型，可选：postgres/sqlite
	DSN     string `yaml:"dsn" json:"dsn"`         // 数据库连接字符串
}

// LLMConfig LLM配置结构
type LLMConfig struct {
	ModelName   string  `yaml:"model_name"  json:"model_name"`  // 模型名称
	BaseURL     string  `yaml:"url"         json:"url"`         // API地址
	APIKey      string  `yaml:"api_key"     json:"api_key"`     // API密钥
	Temperature float32 `yaml:"temperature" json:"temperature"` // 温度参数
	MaxTokens   int     `yaml:"max_tokens"  json:"max_tokens"`  // 最大令牌数
}

// SearchConfig 联网搜索配置（Brave Search）
type SearchConfig struct {
	APIKey     string `yaml:"api_key"     json:"api_key"`     // Brave API密钥
	Endpoint   string `yaml:"endpoint"    json:"endpoint"`    // 搜索接口地址
	MaxResults int    `yaml:"max_results" json:"max_results"` // 返回结果条数上限
}

// RAGConfig 知识库检索配置
type RAGConfig struct {
	EmbeddingModel string  `yaml:"embedding_model" json:"embedding_model"` // 向量模型名称
	TopK           int     `yaml:"top_k"           json:"top_k"`           // 检索条数
	Threshold      float64 `yaml:"threshold"       json:"threshold"`       // 相似度阈值(0-1)
}

// ChatConfig 对话流程配置
type ChatConfig struct {
	HistoryLimit     int      `yaml:"history_limit"       json:"history_limit"`       // 上下文窗口消息条数
	CheckpointChars  int      `yaml:"checkpoint_chars"    json:"checkpoint_chars"`    // 增量落库的字符阈值
	QueueSize        int      `yaml:"queue_size"          json:"queue_size"`          // 转发队列容量
	DeliveryPollMS   int      `yaml:"delivery_poll_ms"    json:"delivery_poll_ms"`    // 发送循环轮询间隔(毫秒)
	ToolResultMaxLen int      `yaml:"tool_result_max_len" json:"tool_result_max_len"` // 工具结果截断长度
	MaxToolRounds    int      `yaml:"max_tool_rounds"     json:"max_tool_rounds"`     // 单轮对话的工具调用轮数上限
	TurnTTLSeconds   int      `yaml:"turn_ttl_seconds"    json:"turn_ttl_seconds"`    // 对话轮次锁的过期时间(秒)
	SuggestionModel  string   `yaml:"suggestion_model"    json:"suggestion_model"`    // 建议生成模型
	Suggestions      []string `yaml:"suggestions"         json:"suggestions"`         // 默认建议列表
}

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip" json:"ip"`
		Port int    `yaml:"port" json:"port"`
		Auth struct {
			Enabled bool          `yaml:"enabled" json:"enabled"`
			Tokens  []TokenConfig `yaml:"tokens" json:"tokens"`
		} `yaml:"auth" json:"auth"`
	} `yaml:"server" json:"server"`

	// 数据库配置
	DB DBConfig `yaml:"db" json:"db"`

	// Redis缓存配置
	RedisCache RedisConfig `yaml:"redis_cache" json:"redis_cache"`

	Log struct {
		LogLevel string `yaml:"log_level" json:"log_level"`
		LogDir   string `yaml:"log_dir" json:"log_dir"`
		LogFile  string `yaml:"log_file" json:"log_file"`
	} `yaml:"log" json:"log"`

	LLM    LLMConfig    `yaml:"LLM"    json:"LLM"`
	Search SearchConfig `yaml:"search" json:"search"`
	RAG    RAGConfig    `yaml:"RAG"    json:"RAG"`
	Chat   ChatConfig   `yaml:"chat"   json:"chat"`

	DefaultPrompt string `yaml:"prompt" json:"prompt"`
}

func (cfg *Config) ToString() string {
	data, _ := yaml.Marshal(cfg)
	return string(data)
}

func (cfg *Config) FromString(data string) error {
	return yaml.Unmarshal([]byte(data), cfg)
}

func (cfg *Config) setDefaults() {
	cfg.Server.IP = "0.0.0.0"
	cfg.Server.Port = 8000

	cfg.DB.Dialect = "sqlite"
	cfg.DB.DSN = "agent.db"

	cfg.Log.LogDir = "logs"
	cfg.Log.LogLevel = "INFO"
	cfg.Log.LogFile = "server.log"

	cfg.LLM.ModelName = "gpt-4o"
	cfg.LLM.Temperature = 0.7

	cfg.Search.Endpoint = "https://api.search.brave.com/res/v1/web/search"
	cfg.Search.MaxResults = 5

	cfg.RAG.EmbeddingModel = "text-embedding-3-small"
	cfg.RAG.TopK = 30
	cfg.RAG.Threshold = 0.7

	cfg.Chat.HistoryLimit = 3
	cfg.Chat.CheckpointChars = 100
	cfg.Chat.QueueSize = 100
	cfg.Chat.DeliveryPollMS = 1000
	cfg.Chat.ToolResultMaxLen = 500
	cfg.Chat.MaxToolRounds = 5
	cfg.Chat.TurnTTLSeconds = 300
	cfg.Chat.SuggestionModel = "gpt-4o-mini"
	cfg.Chat.Suggestions = []string{
		"Tell me about the latest MacBook Air",
		"Compare the latest against older models",
		"What are the current prices?",
	}
}

// 从config.yaml加载，文件不存在时回退到默认配置
func LoadConfig() (*Config, string, error) {
	config := &Config{}
	path := "config.yaml"

	config.setDefaults()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, path, err
		}
	}

	return config, path, nil
}
