// Package scoring 实现 dashboard 的预训练模型流水线：
// 标准化 → PCA 投影 → 岭回归分数 + 两个逻辑回归分类器。
// 模型参数以 JSON 文件形式保存，全部文件在启动时加载。
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// 模型文件名
const (
	ScalerFile      = "scaler.json"
	PCAFile         = "pca.json"
	RidgeFile       = "ridge_model_pca.json"
	PassFailFile    = "pass_fail_model_pca.json"
	DropoutRiskFile = "dropout_risk_model_pca.json"
)

// ErrArtifactMissing 表示某个模型文件不存在。
var ErrArtifactMissing = errors.New("model artifact missing")

// Source 按文件名读取模型文件。找不到时返回的错误需满足 errors.Is(err, fs.ErrNotExist)。
type Source interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// LocalSource 从本地目录读取模型文件。
type LocalSource struct {
	Dir string
}

func (s LocalSource) ReadFile(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.Dir, name))
}

func (s LocalSource) String() string { return s.Dir }

// Scaler 对应 StandardScaler 的 mean_ 与 scale_。
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// PCA 对应 PCA 的 mean_ 与 components_（n_components × n_features）。
type PCA struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
}

// Linear 是线性回归模型的参数。
type Linear struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Logistic 是二分类逻辑回归的参数，Threshold 为 0 时按 0.5 处理。
type Logistic struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Threshold float64   `json:"threshold"`
}

func readJSON(ctx context.Context, src Source, name string, v any) error {
	data, err := src.ReadFile(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, name)
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// Load 从 src 读取全部五个模型文件并校验维度，缺少任何一个都返回 ErrArtifactMissing。
func Load(ctx context.Context, src Source) (*Pipeline, error) {
	p := &Pipeline{}
	files := []struct {
		name string
		dst  any
	}{
		{ScalerFile, &p.Scaler},
		{PCAFile, &p.PCA},
		{RidgeFile, &p.Ridge},
		{PassFailFile, &p.PassFail},
		{DropoutRiskFile, &p.DropoutRisk},
	}
	for _, f := range files {
		if err := readJSON(ctx, src, f.name, f.dst); err != nil {
			return nil, err
		}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.components = componentsDense(p.PCA.Components)
	return p, nil
}

func (p *Pipeline) validate() error {
	n := len(p.Scaler.Mean)
	if n == 0 || len(p.Scaler.Scale) != n {
		return fmt.Errorf("scaler: mean has %d values, scale has %d", n, len(p.Scaler.Scale))
	}
	for i, s := range p.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler: scale[%d] is zero", i)
		}
	}
	if len(p.PCA.Mean) != n {
		return fmt.Errorf("pca: mean has %d values, want %d", len(p.PCA.Mean), n)
	}
	k := len(p.PCA.Components)
	if k == 0 {
		return errors.New("pca: no components")
	}
	for i, row := range p.PCA.Components {
		if len(row) != n {
			return fmt.Errorf("pca: component %d has %d values, want %d", i, len(row), n)
		}
	}
	if len(p.Ridge.Coef) != k {
		return fmt.Errorf("%s: coef has %d values, want %d", RidgeFile, len(p.Ridge.Coef), k)
	}
	if len(p.PassFail.Coef) != k {
		return fmt.Errorf("%s: coef has %d values, want %d", PassFailFile, len(p.PassFail.Coef), k)
	}
	if len(p.DropoutRisk.Coef) != k {
		return fmt.Errorf("%s: coef has %d values, want %d", DropoutRiskFile, len(p.DropoutRisk.Coef), k)
	}
	return nil
}
