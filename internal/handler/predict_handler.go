// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PredictHandler 暴露学科预测接口。响应格式与原 /predict 服务保持一致，便于 tutor 直接调用。
type PredictHandler struct {
	classificationService service.ClassificationService
}

// NewPredictHandler 创建一个新的 PredictHandler。
func NewPredictHandler(classificationService service.ClassificationService) *PredictHandler {
	return &PredictHandler{classificationService: classificationService}
}

// PredictRequest 是 POST /predict 的请求体。字段用指针区分“缺失”与“空字符串”。
type PredictRequest struct {
	StudentID *string `json:"student_id"`
	Text      *string `json:"text"`
}

// Root 处理 GET /。
func (h *PredictHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Subject predictor is running"})
}

// Predict 处理 POST /predict。
func (h *PredictHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid request body: " + err.Error()})
		return
	}
	if req.StudentID == nil || req.Text == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "student_id and text are required"})
		return
	}

	subject, err := h.classificationService.Predict(c.Request.Context(), *req.StudentID, *req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyText):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Empty text"})
		case errors.Is(err, service.ErrLogWrite):
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "DB write failed"})
		default:
			log.Errorf("Predict: 分类失败, student_id: %s, error: %v", *req.StudentID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Classification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"subject": subject})
}
