package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"edu-insight-go/internal/model"
	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DashboardHandler 负责成绩看板的页面与 JSON 接口。
type DashboardHandler struct {
	performanceService service.PerformanceService
}

// NewDashboardHandler 创建一个新的 DashboardHandler。
func NewDashboardHandler(performanceService service.PerformanceService) *DashboardHandler {
	return &DashboardHandler{performanceService: performanceService}
}

// FeatureField 是手动模式表单中的一个输入项。
type FeatureField struct {
	Name  string
	Label string
	Value string
}

// DashboardPage 是 dashboard.html 的渲染数据。
type DashboardPage struct {
	Manual    bool
	StudentID string
	Report    *service.StudentReport
	Result    *model.PerformancePrediction
	NotFound  bool
	Error     string
	Fields    []FeatureField
}

func featureLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// manualFields 生成手动模式表单，values 为空时使用默认值（动机 2，使用教育科技 Yes，其余 0）。
func manualFields(values map[string]string) []FeatureField {
	fields := make([]FeatureField, 0, len(model.FeatureNames))
	for _, name := range model.FeatureNames {
		v, ok := values[name]
		if !ok {
			switch name {
			case "motivation_level":
				v = "2"
			case "use_ed_tech":
				v = "Yes"
			default:
				v = "0"
			}
		}
		fields = append(fields, FeatureField{Name: name, Label: featureLabel(name), Value: v})
	}
	return fields
}

// Index 处理 GET /，manual=1 时显示手动输入表单。
func (h *DashboardHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", DashboardPage{
		Manual: c.Query("manual") == "1",
		Fields: manualFields(nil),
	})
}

// Lookup 处理 GET /students?student_id=。
func (h *DashboardHandler) Lookup(c *gin.Context) {
	studentID := strings.TrimSpace(c.Query("student_id"))
	page := DashboardPage{StudentID: studentID, Fields: manualFields(nil)}
	if studentID == "" {
		c.HTML(http.StatusOK, "dashboard.html", page)
		return
	}

	report, err := h.performanceService.Lookup(c.Request.Context(), studentID)
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		page.NotFound = true
		c.HTML(http.StatusNotFound, "dashboard.html", page)
	case err != nil:
		log.Errorf("Dashboard: 查询学生失败, student_id: %s, error: %v", studentID, err)
		page.Error = "Database error"
		c.HTML(http.StatusInternalServerError, "dashboard.html", page)
	default:
		page.Report = report
		c.HTML(http.StatusOK, "dashboard.html", page)
	}
}

// Manual 处理手动模式表单提交 POST /manual。
func (h *DashboardHandler) Manual(c *gin.Context) {
	values := make(map[string]string, len(model.FeatureNames))
	for _, name := range model.FeatureNames {
		if v, ok := c.GetPostForm(name); ok {
			values[name] = v
		}
	}

	page := DashboardPage{Manual: true, Fields: manualFields(values)}
	result, err := h.performanceService.Manual(c.Request.Context(), service.EncodeManual(values))
	if err != nil {
		page.Error = err.Error()
		c.HTML(http.StatusInternalServerError, "dashboard.html", page)
		return
	}
	page.Result = result
	c.HTML(http.StatusOK, "dashboard.html", page)
}

// GetStudentPrediction 处理 GET /api/v1/students/:studentId/prediction。
func (h *DashboardHandler) GetStudentPrediction(c *gin.Context) {
	report, err := h.performanceService.Lookup(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			respondError(c, http.StatusNotFound, "Student ID not found")
			return
		}
		log.Errorf("GetStudentPrediction: 查询失败, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}
	respondOK(c, report)
}

// ManualPrediction 处理 POST /api/v1/predictions/manual，请求体为特征名到数值（或字符串）的映射。
func (h *DashboardHandler) ManualPrediction(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求体")
		return
	}

	values := make(map[string]string, len(body))
	for k, v := range body {
		switch t := v.(type) {
		case string:
			values[k] = t
		case float64:
			values[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			values[k] = strconv.FormatBool(t)
		case nil:
		default:
			values[k] = fmt.Sprint(t)
		}
	}
	// 与表单一致，未提供时动机等级取默认值
	features := service.EncodeManual(values)

	result, err := h.performanceService.Manual(c.Request.Context(), features)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, gin.H{"features": features, "prediction": result, "passFail": result.PassLabel()})
}
