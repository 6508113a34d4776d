// Package config 负责加载和管理三个进程共用的配置。
// 配置来源优先级：环境变量（含工作目录下的 .env） > configs/config.yaml > 默认值。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储加载后的所有设置。
var Conf Config

// 进程名，用于 Missing 检查必需的环境变量。
const (
	ComponentPredictor = "predictor"
	ComponentTutor     = "tutor"
	ComponentDashboard = "dashboard"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Topic      TopicConfig      `mapstructure:"topic"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Tutor      TutorConfig      `mapstructure:"tutor"`
}

// ServerConfig 存储三个 HTTP 进程的监听端口与 gin 模式。
type ServerConfig struct {
	Mode          string `mapstructure:"mode"`
	PredictorPort string `mapstructure:"predictor_port"`
	TutorPort     string `mapstructure:"tutor_port"`
	DashboardPort string `mapstructure:"dashboard_port"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL / TiDB 的连接配置。
// DSN 非空时直接使用，否则由其余字段拼接。
type MySQLConfig struct {
	DSN       string `mapstructure:"dsn"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Name      string `mapstructure:"name"`
	SSLCAPath string `mapstructure:"ssl_ca_path"`
	TLS       bool   `mapstructure:"tls"`
}

// Address 返回 host:port 形式的地址。
func (c MySQLConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig 存储 Redis 的配置。Addr 为空时 tutor 使用进程内会话存储。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// JWTConfig 存储 tutor 登录令牌的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空表示不启用。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，仅在模型文件来源为 minio 时使用。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储托管对话模型（OpenAI 兼容接口）的配置。
type LLMConfig struct {
	APIKey            string              `mapstructure:"api_key"`
	BaseURL           string              `mapstructure:"base_url"`
	Model             string              `mapstructure:"model"`
	SystemInstruction string              `mapstructure:"system_instruction"`
	Generation        LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选，零值表示不传）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ClassifierConfig 存储零样本分类推理服务的配置。
type ClassifierConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// TopicConfig 存储 tutor 向 /predict 发送主题通知的配置。
// Transport 取值 "http"（默认）或 "kafka"。
type TopicConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Transport      string `mapstructure:"transport"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ArtifactsConfig 存储 dashboard 预训练模型文件的位置。
// Source 取值 "local"（默认，从 Dir 读取）或 "minio"（从桶内 Prefix 下读取）。
type ArtifactsConfig struct {
	Source string `mapstructure:"source"`
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// TutorConfig 存储聊天会话相关的配置。
type TutorConfig struct {
	DefaultTitle    string `mapstructure:"default_title"`
	TitleMaxLength  int    `mapstructure:"title_max_length"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours"`
}

// envBindings 记录配置键与环境变量名的对应关系，沿用原部署中的变量名。
var envBindings = map[string][]string{
	"server.mode":                   {"GIN_MODE"},
	"server.predictor_port":         {"PREDICTOR_PORT"},
	"server.tutor_port":             {"TUTOR_PORT"},
	"server.dashboard_port":         {"DASHBOARD_PORT"},
	"database.mysql.dsn":            {"DB_DSN"},
	"database.mysql.host":           {"DB_HOST"},
	"database.mysql.port":           {"DB_PORT"},
	"database.mysql.user":           {"DB_USER"},
	"database.mysql.password":       {"DB_PASS"},
	"database.mysql.name":           {"DB_NAME"},
	"database.mysql.ssl_ca_path":    {"DB_SSL_CA_PATH"},
	"database.mysql.tls":            {"DB_TLS"},
	"database.redis.addr":           {"REDIS_ADDR"},
	"database.redis.password":       {"REDIS_PASSWORD"},
	"database.redis.db":             {"REDIS_DB"},
	"log.level":                     {"LOG_LEVEL"},
	"log.format":                    {"LOG_FORMAT"},
	"log.output_path":               {"LOG_OUTPUT_PATH"},
	"jwt.secret":                    {"JWT_SECRET"},
	"kafka.brokers":                 {"KAFKA_BROKERS"},
	"kafka.topic":                   {"KAFKA_TOPIC"},
	"kafka.group_id":                {"KAFKA_GROUP_ID"},
	"minio.endpoint":                {"MINIO_ENDPOINT"},
	"minio.access_key_id":           {"MINIO_ACCESS_KEY_ID"},
	"minio.secret_access_key":       {"MINIO_SECRET_ACCESS_KEY"},
	"minio.use_ssl":                 {"MINIO_USE_SSL"},
	"minio.bucket_name":             {"MINIO_BUCKET"},
	"llm.api_key":                   {"GOOGLE_API_KEY", "LLM_API_KEY"},
	"llm.base_url":                  {"LLM_BASE_URL"},
	"llm.model":                     {"LLM_MODEL"},
	"classifier.api_key":            {"HF_API_TOKEN"},
	"classifier.base_url":           {"CLASSIFIER_BASE_URL"},
	"classifier.model":              {"CLASSIFIER_MODEL"},
	"topic.endpoint":                {"HF_SPACE_URL"},
	"topic.transport":               {"TOPIC_TRANSPORT"},
	"topic.timeout_seconds":         {"TOPIC_TIMEOUT_SECONDS"},
	"artifacts.source":              {"ARTIFACT_SOURCE"},
	"artifacts.dir":                 {"ARTIFACT_DIR"},
	"artifacts.prefix":              {"ARTIFACT_PREFIX"},
	"tutor.session_ttl_hours":       {"TUTOR_SESSION_TTL_HOURS"},
	"jwt.access_token_expire_hours": {"JWT_EXPIRE_HOURS"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.predictor_port", "7860")
	v.SetDefault("server.tutor_port", "8501")
	v.SetDefault("server.dashboard_port", "8502")
	v.SetDefault("database.mysql.port", 4000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.access_token_expire_hours", 12)
	v.SetDefault("kafka.topic", "topic-detection")
	v.SetDefault("kafka.group_id", "edu-insight-predictor")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.model", "gemini-2.0-flash-exp")
	v.SetDefault("llm.system_instruction", "You are a friendly tutor. After each explanation ask an open-ended question "+
		"to check understanding and encourage deeper thinking.")
	v.SetDefault("classifier.base_url", "https://api-inference.huggingface.co/models")
	v.SetDefault("classifier.model", "MoritzLaurer/deberta-v3-large-zeroshot-v1.1-all-33")
	v.SetDefault("classifier.timeout_seconds", 60)
	v.SetDefault("topic.transport", "http")
	v.SetDefault("topic.timeout_seconds", 25)
	v.SetDefault("artifacts.source", "local")
	v.SetDefault("artifacts.dir", "./artifacts")
	v.SetDefault("tutor.default_title", "New Chat")
	v.SetDefault("tutor.title_max_length", 40)
	v.SetDefault("tutor.session_ttl_hours", 24)
}

// Load 读取配置文件（可选）和环境变量并返回解析后的配置。
func Load(configPath string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("绑定环境变量 %s 失败: %w", key, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 加载配置到全局变量 Conf，失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}

// loadDotEnv 把 .env 中的变量导出到进程环境，已存在的环境变量不会被覆盖。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// Missing 返回指定进程启动所需但未设置的环境变量名。
func (c Config) Missing(component string) []string {
	var missing []string
	db := c.Database.MySQL
	if db.DSN == "" {
		if db.Host == "" {
			missing = append(missing, "DB_HOST")
		}
		if db.User == "" {
			missing = append(missing, "DB_USER")
		}
		if db.Name == "" {
			missing = append(missing, "DB_NAME")
		}
	}

	switch component {
	case ComponentPredictor:
		if c.Classifier.APIKey == "" && strings.Contains(c.Classifier.BaseURL, "huggingface.co") {
			missing = append(missing, "HF_API_TOKEN")
		}
	case ComponentTutor:
		if c.LLM.APIKey == "" {
			missing = append(missing, "GOOGLE_API_KEY")
		}
		if strings.EqualFold(c.Topic.Transport, "kafka") {
			if c.Kafka.Brokers == "" {
				missing = append(missing, "KAFKA_BROKERS")
			}
		} else if c.Topic.Endpoint == "" {
			missing = append(missing, "HF_SPACE_URL")
		}
	case ComponentDashboard:
		if strings.EqualFold(c.Artifacts.Source, "minio") {
			if c.MinIO.Endpoint == "" {
				missing = append(missing, "MINIO_ENDPOINT")
			}
			if c.MinIO.BucketName == "" {
				missing = append(missing, "MINIO_BUCKET")
			}
		}
	}
	return missing
}
