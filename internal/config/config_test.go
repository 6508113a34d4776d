package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PREDICTOR_PORT", "")
	t.Setenv("TOPIC_TRANSPORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "7860", cfg.Server.PredictorPort)
	assert.Equal(t, "8501", cfg.Server.TutorPort)
	assert.Equal(t, "8502", cfg.Server.DashboardPort)
	assert.Equal(t, 4000, cfg.Database.MySQL.Port)
	assert.Equal(t, "http", cfg.Topic.Transport)
	assert.Equal(t, 25, cfg.Topic.TimeoutSeconds)
	assert.Equal(t, "New Chat", cfg.Tutor.DefaultTitle)
	assert.Equal(t, 40, cfg.Tutor.TitleMaxLength)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  predictor_port: \"9000\"\ndatabase:\n  mysql:\n    host: file-host\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("PREDICTOR_PORT", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.PredictorPort)
	assert.Equal(t, "env-host", cfg.Database.MySQL.Host)
	assert.Equal(t, 3306, cfg.Database.MySQL.Port)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
}

func TestMissingDatabaseVariables(t *testing.T) {
	var cfg Config
	assert.Equal(t, []string{"DB_HOST", "DB_USER", "DB_NAME"}, cfg.Missing(ComponentDashboard))

	cfg.Database.MySQL.DSN = "user:pw@tcp(db:4000)/school"
	assert.Empty(t, cfg.Missing(ComponentDashboard))
}

func TestMissingPerComponent(t *testing.T) {
	base := Config{Database: DatabaseConfig{MySQL: MySQLConfig{DSN: "dsn"}}}

	predictor := base
	predictor.Classifier.BaseURL = "https://api-inference.huggingface.co/models"
	assert.Equal(t, []string{"HF_API_TOKEN"}, predictor.Missing(ComponentPredictor))
	predictor.Classifier.BaseURL = "http://localhost:8080"
	assert.Empty(t, predictor.Missing(ComponentPredictor))

	tutor := base
	assert.Equal(t, []string{"GOOGLE_API_KEY", "HF_SPACE_URL"}, tutor.Missing(ComponentTutor))
	tutor.LLM.APIKey = "k"
	tutor.Topic.Transport = "Kafka"
	assert.Equal(t, []string{"KAFKA_BROKERS"}, tutor.Missing(ComponentTutor))

	dashboard := base
	assert.Empty(t, dashboard.Missing(ComponentDashboard))
	dashboard.Artifacts.Source = "minio"
	assert.Equal(t, []string{"MINIO_ENDPOINT", "MINIO_BUCKET"}, dashboard.Missing(ComponentDashboard))
}
