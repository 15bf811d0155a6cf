package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/apperr"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "accountant", "receptionist", "doctor"))
	readGroup.GET("/bills", h.ListBills)
	readGroup.GET("/bills/:id", h.GetBill)
	readGroup.GET("/bills/:id/payments", h.ListPayments)
	readGroup.GET("/patients/:patientId/outstanding", h.GetOutstanding)

	billingGroup := api.Group("", auth.RequireRole("admin", "accountant", "receptionist"))
	billingGroup.POST("/bills", h.CreateBill)
	billingGroup.POST("/bills/:id/items", h.AddLineItem)
	billingGroup.DELETE("/bills/:id/items/:itemId", h.RemoveLineItem)
	billingGroup.POST("/bills/:id/generate", h.Generate)
	billingGroup.POST("/bills/:id/payments", h.RecordPayment)

	adminGroup := api.Group("", auth.RequireRole("admin", "accountant"))
	adminGroup.GET("/bills/stats/revenue", h.GetRevenueStats)
	adminGroup.POST("/bills/:id/cancel", h.Cancel)
	adminGroup.POST("/bills/:id/refund", h.Refund)
	adminGroup.POST("/bills/:id/write-off", h.WriteOff)
	adminGroup.POST("/bills/:id/mark-overdue", h.MarkOverdue)
}

func (h *Handler) CreateBill(c echo.Context) error {
	var b Bill
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if userID := auth.UserIDFromContext(c.Request().Context()); userID != "" {
		if uid, err := uuid.Parse(userID); err == nil {
			b.CreatedBy = &uid
		}
	}
	if err := h.svc.CreateBill(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	idParam := c.Param("id")
	ctx := c.Request().Context()
	if id, err := uuid.Parse(idParam); err == nil {
		b, err := h.svc.GetBill(ctx, id)
		if err != nil {
			return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, b)
	}
	// Bill numbers are accepted in place of ids.
	b, err := h.svc.GetBillByNumber(ctx, idParam)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		BillType: c.QueryParam("bill_type"),
		Status:   c.QueryParam("status"),
	}
	if p := c.QueryParam("patient_id"); p != "" {
		pid, err := uuid.Parse(p)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &pid
	}
	if a := c.QueryParam("admission_id"); a != "" {
		aid, err := uuid.Parse(a)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid admission_id")
		}
		f.AdmissionID = &aid
	}
	items, total, err := h.svc.ListBills(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AddLineItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var li LineItem
	if err := c.Bind(&li); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.AddLineItem(c.Request().Context(), id, &li)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) RemoveLineItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	b, err := h.svc.RemoveLineItem(c.Request().Context(), id, itemID)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Generate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.Generate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Payment
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if userID := auth.UserIDFromContext(c.Request().Context()); userID != "" {
		if uid, err := uuid.Parse(userID); err == nil {
			p.ReceivedBy = &uid
		}
	}
	b, err := h.svc.RecordPayment(c.Request().Context(), id, &p)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListPayments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Payments(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type closeRequest struct {
	Note *string `json:"note,omitempty"`
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.closeBill(c, h.svc.Cancel)
}

func (h *Handler) Refund(c echo.Context) error {
	return h.closeBill(c, h.svc.Refund)
}

func (h *Handler) WriteOff(c echo.Context) error {
	return h.closeBill(c, h.svc.WriteOff)
}

func (h *Handler) MarkOverdue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.MarkOverdue(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) closeBill(c echo.Context, fn func(context.Context, uuid.UUID, *string) (*Bill, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req closeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := fn(c.Request().Context(), id, req.Note)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) GetOutstanding(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	s, err := h.svc.Outstanding(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) GetRevenueStats(c echo.Context) error {
	st, err := h.svc.RevenueStats(c.Request().Context(), c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, st)
}
