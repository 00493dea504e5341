package handlers

import (
	"net/http"

	"invoiceflow/internal/common"
	"invoiceflow/internal/services"

	"github.com/labstack/echo/v4"
)

// JobLister reports the names of the registered background jobs.
type JobLister interface {
	Jobs() []string
}

type JobHandlers struct {
	scheduler      JobLister
	invoiceService services.InvoiceServiceInterface
}

func NewJobHandlers(scheduler JobLister, invoiceService services.InvoiceServiceInterface) *JobHandlers {
	return &JobHandlers{
		scheduler:      scheduler,
		invoiceService: invoiceService,
	}
}

// ListJobs handles GET /jobs
func (h *JobHandlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"jobs": h.scheduler.Jobs()})
}

// RefreshStats recomputes the caller's dashboard figures now instead of
// waiting for the next scheduled run.
func (h *JobHandlers) RefreshStats(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	stats, err := h.invoiceService.RefreshStats(c.Request().Context(), tenantID)
	if err != nil {
		return respondError(c, err, "invoice stats")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Invoice stats refreshed",
		"stats":   stats,
	})
}
