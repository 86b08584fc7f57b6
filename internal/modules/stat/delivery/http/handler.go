package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/stat/dto"
	stat "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/stat/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatHandler struct {
	service stat.StatService
}

func NewStatHandler(service stat.StatService) *StatHandler {
	return &StatHandler{service: service}
}

func (h *StatHandler) GetStudentStats(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.StudentStats(c.Request.Context(), p)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, stats)
}

func (h *StatHandler) GetTutorStats(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.TutorStats(c.Request.Context(), p)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, stats)
}

func (h *StatHandler) GetReport(c *gin.Context) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	report, err := h.service.Report(c.Request.Context(), query.Range)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, report)
}

func (h *StatHandler) ExportReport(c *gin.Context) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	f, err := h.service.ExportReport(c.Request.Context(), query.Range)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		response.ResponseError(c, apperror.Internal(err))
		return
	}

	name := fmt.Sprintf("tutorate-report-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
