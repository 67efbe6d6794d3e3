package handler

import (
	"fmt"
	"net/http"

	"spazatrack/internal/apierror"
	"spazatrack/internal/dto"
	"spazatrack/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	svc     service.SaleService
	reports service.ReportService
}

func NewSalesHandler(svc service.SaleService, reports service.ReportService) *SalesHandler {
	return &SalesHandler{svc: svc, reports: reports}
}

func (h *SalesHandler) Record(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordSale(c.Request.Context(), principal(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List returns the shop's sales newest first, optionally for one ?date=.
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, err.Error()))
		return
	}
	resp, err := h.svc.ListSales(c.Request.Context(), principal(c), filter.Date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report streams the day's sales as a PDF attachment.
func (h *SalesHandler) Report(c *gin.Context) {
	var filter dto.SaleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, err.Error()))
		return
	}
	pdf, dateKey, err := h.reports.SalesReportPDF(c.Request.Context(), principal(c), filter.Date)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="sales-%s.pdf"`, dateKey))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
