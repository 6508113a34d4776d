package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// MaxScore 是预测分数的上限。
const MaxScore = 99.0

// Pipeline 保存已加载的全部模型参数，加载后只读，可并发使用。
type Pipeline struct {
	Scaler      Scaler
	PCA         PCA
	Ridge       Linear
	PassFail    Logistic
	DropoutRisk Logistic

	// components 是 PCA.Components 的矩阵形式，由 Load 构建。
	components *mat.Dense
}

// Raw 是模型的原始输出，尚未应用业务规则。
type Raw struct {
	Score              float64
	Pass               bool
	PassProbability    float64
	DropoutRisk        bool
	DropoutProbability float64
}

// NumFeatures 返回流水线期望的特征数。
func (p *Pipeline) NumFeatures() int {
	return len(p.Scaler.Mean)
}

// Predict 对一个特征向量运行整条流水线。
func (p *Pipeline) Predict(features []float64) (Raw, error) {
	if len(features) != p.NumFeatures() {
		return Raw{}, fmt.Errorf("expected %d features, got %d", p.NumFeatures(), len(features))
	}

	z := p.project(p.scale(features))
	for i, v := range z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Raw{}, fmt.Errorf("component %d is not finite", i)
		}
	}

	score := floats.Dot(p.Ridge.Coef, z) + p.Ridge.Intercept
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Raw{}, fmt.Errorf("score is not finite")
	}
	score = math.Min(scalar.Round(score, 2), MaxScore)

	passProb := p.PassFail.probability(z)
	dropoutProb := p.DropoutRisk.probability(z)

	return Raw{
		Score:              score,
		Pass:               passProb >= p.PassFail.threshold(),
		PassProbability:    passProb,
		DropoutRisk:        dropoutProb >= p.DropoutRisk.threshold(),
		DropoutProbability: dropoutProb,
	}, nil
}

// scale 计算 (x - mean) / scale。
func (p *Pipeline) scale(x []float64) []float64 {
	out := make([]float64, len(x))
	floats.SubTo(out, x, p.Scaler.Mean)
	floats.Div(out, p.Scaler.Scale)
	return out
}

// project 计算 components · (x - pca.mean)。
func (p *Pipeline) project(x []float64) []float64 {
	centered := make([]float64, len(x))
	floats.SubTo(centered, x, p.PCA.Mean)

	var z mat.VecDense
	z.MulVec(p.componentMatrix(), mat.NewVecDense(len(centered), centered))
	return z.RawVector().Data
}

func (p *Pipeline) componentMatrix() *mat.Dense {
	if p.components != nil {
		return p.components
	}
	return componentsDense(p.PCA.Components)
}

func componentsDense(rows [][]float64) *mat.Dense {
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), n, data)
}

func (l Logistic) probability(z []float64) float64 {
	return sigmoid(floats.Dot(l.Coef, z) + l.Intercept)
}

func (l Logistic) threshold() float64 {
	if l.Threshold <= 0 || l.Threshold >= 1 {
		return 0.5
	}
	return l.Threshold
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
