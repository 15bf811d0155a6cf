package emergency

import (
	"net/http"
	"time"

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
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "nurse", "receptionist"))
	readGroup.GET("/emergency-cases", h.ListCases)
	readGroup.GET("/emergency-cases/stats", h.GetStats)
	readGroup.GET("/emergency-cases/:id", h.GetCase)
	readGroup.GET("/emergency-cases/:id/vitals", h.ListVitals)
	readGroup.GET("/emergency-cases/:id/treatment-notes", h.ListTreatmentNotes)
	readGroup.POST("/emergency-cases", h.RegisterCase)
	readGroup.POST("/emergency-cases/:id/identify", h.IdentifyPatient)

	clinicalGroup := api.Group("", auth.RequireRole("admin", "doctor", "nurse"))
	clinicalGroup.PUT("/emergency-cases/:id/triage", h.UpdateTriage)
	clinicalGroup.PUT("/emergency-cases/:id/status", h.UpdateStatus)
	clinicalGroup.POST("/emergency-cases/:id/assign-bed", h.AssignBed)
	clinicalGroup.POST("/emergency-cases/:id/vitals", h.AddVital)
	clinicalGroup.POST("/emergency-cases/:id/treatment-notes", h.AddTreatmentNote)
	clinicalGroup.POST("/emergency-cases/:id/mlc", h.MarkMLC)
	clinicalGroup.POST("/emergency-cases/:id/disposition", h.Disposition)
}

func callerID(c echo.Context) *uuid.UUID {
	if userID := auth.UserIDFromContext(c.Request().Context()); userID != "" {
		if uid, err := uuid.Parse(userID); err == nil {
			return &uid
		}
	}
	return nil
}

func (h *Handler) RegisterCase(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.RegisteredBy = callerID(c)
	ec, err := h.svc.RegisterCase(c.Request().Context(), &req)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, ec)
}

func (h *Handler) GetCase(c echo.Context) error {
	idParam := c.Param("id")
	ctx := c.Request().Context()
	if id, err := uuid.Parse(idParam); err == nil {
		ec, err := h.svc.GetCase(ctx, id)
		if err != nil {
			return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, ec)
	}
	// Case numbers are accepted in place of ids.
	ec, err := h.svc.GetCaseByNumber(ctx, idParam)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Status:      c.QueryParam("status"),
		TriageLevel: c.QueryParam("triage_level"),
		MLCOnly:     c.QueryParam("mlc") == "true",
	}
	if p := c.QueryParam("patient_id"); p != "" {
		pid, err := uuid.Parse(p)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &pid
	}
	if d := c.QueryParam("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		f.ArrivedOn = &day
	}
	items, total, err := h.svc.ListCases(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTriage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var upd TriageUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.PerformedBy = callerID(c)
	ec, err := h.svc.UpdateTriage(c.Request().Context(), id, &upd)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ec, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) IdentifyPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		PatientID uuid.UUID `json:"patient_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	ec, err := h.svc.IdentifyPatient(c.Request().Context(), id, req.PatientID)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) AssignBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		BedID uuid.UUID `json:"bed_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.BedID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bed_id is required")
	}
	ec, err := h.svc.AssignBed(c.Request().Context(), id, req.BedID)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) MarkMLC(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		PoliceStation *string    `json:"police_station,omitempty"`
		ReportNumber  *string    `json:"report_number,omitempty"`
		OfficerName   *string    `json:"officer_name,omitempty"`
		ReportedAt    *time.Time `json:"reported_at,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ec, err := h.svc.MarkMLC(c.Request().Context(), id, req.PoliceStation, req.ReportNumber, req.OfficerName, req.ReportedAt)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) Disposition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req DispositionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ec, err := h.svc.Disposition(c.Request().Context(), id, &req)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) AddVital(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var v Vital
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.RecordedBy = callerID(c)
	if err := h.svc.AddVital(c.Request().Context(), id, &v); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Vitals(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddTreatmentNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var n TreatmentNote
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.WrittenBy = callerID(c)
	if err := h.svc.AddTreatmentNote(c.Request().Context(), id, &n); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListTreatmentNotes(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.TreatmentNotes(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetStats(c echo.Context) error {
	s, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, s)
}
