// Package zeroshot provides a client for hosted zero-shot text classification models.
package zeroshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"edu-insight-go/internal/config"
	"edu-insight-go/pkg/log"
)

// ErrNoScores 表示推理服务没有返回任何候选标签的分数。
var ErrNoScores = errors.New("classifier returned no scores for the candidate labels")

// Client defines the interface for a zero-shot classification client.
type Client interface {
	Classify(ctx context.Context, text string, labels []string) (Result, error)
}

type inferenceClient struct {
	cfg    config.ClassifierConfig
	client *http.Client
}

// NewClient creates a client for the Hugging Face inference API (or any server speaking the same protocol).
func NewClient(cfg config.ClassifierConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &inferenceClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters classifyParams   `json:"parameters"`
	Options    *classifyOptions `json:"options,omitempty"`
}

type classifyParams struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type classifyOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Result 是候选标签到分数的映射。
type Result map[string]float64

// Best 返回分数最高的标签。并列时取 labels 中靠前的一个，不在 labels 中的标签和非有限分数被忽略。
func (r Result) Best(labels []string) (string, float64, error) {
	best, bestScore, found := "", 0.0, false
	for _, label := range labels {
		score, ok := r[label]
		if !ok || math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = label, score, true
		}
	}
	if !found {
		return "", 0, ErrNoScores
	}
	return best, bestScore, nil
}

func (c *inferenceClient) endpoint() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if c.cfg.Model == "" {
		return base
	}
	return base + "/" + c.cfg.Model
}

// Classify 调用推理服务，对单条文本做单标签零样本分类。
func (c *inferenceClient) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	log.Debugf("[ZeroShotClient] 开始调用分类接口, model: %s, input_len: %d", c.cfg.Model, len(text))
	reqBody := classifyRequest{
		Inputs: text,
		Parameters: classifyParams{
			CandidateLabels: labels,
			MultiLabel:      false,
		},
		Options: &classifyOptions{WaitForModel: true},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[ZeroShotClient] 调用分类接口失败, error: %v", err)
		return nil, fmt.Errorf("failed to call classify api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Errorf("[ZeroShotClient] 分类接口返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("classify api returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	result, err := decodeResult(body)
	if err != nil {
		log.Errorf("[ZeroShotClient] 解析分类响应失败, error: %v", err)
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrNoScores
	}
	return result, nil
}

// decodeResult 兼容两种响应格式：
// {"labels": [...], "scores": [...]} 以及 [{"label": ..., "score": ...}, ...]。
func decodeResult(body []byte) (Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrNoScores
	}

	if trimmed[0] == '[' {
		var items []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode classify response: %w", err)
		}
		result := make(Result, len(items))
		for _, it := range items {
			result[it.Label] = it.Score
		}
		return result, nil
	}

	var obj struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
		Error  string    `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode classify response: %w", err)
	}
	if obj.Error != "" {
		return nil, fmt.Errorf("classify api error: %s", obj.Error)
	}
	if len(obj.Labels) != len(obj.Scores) {
		return nil, fmt.Errorf("classify response has %d labels but %d scores", len(obj.Labels), len(obj.Scores))
	}
	result := make(Result, len(obj.Labels))
	for i, label := range obj.Labels {
		result[label] = obj.Scores[i]
	}
	return result, nil
}
