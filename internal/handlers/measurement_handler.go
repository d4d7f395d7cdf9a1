package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthtracker/internal/models"
)

type Measurements interface {
	Create(ctx context.Context, userID uuid.UUID, req models.MeasurementRequest) (*models.Measurement, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Measurement, error)
	List(ctx context.Context, userID uuid.UUID, f models.MeasurementFilter) ([]*models.Measurement, error)
	Update(ctx context.Context, userID, id uuid.UUID, req models.MeasurementRequest) (*models.Measurement, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type MeasurementHandler struct {
	measurements Measurements
	log          *slog.Logger
}

func NewMeasurementHandler(measurements Measurements, log *slog.Logger) *MeasurementHandler {
	return &MeasurementHandler{measurements: measurements, log: log}
}

// @Summary      Record a measurement
// @Tags         Measurements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.MeasurementRequest  true  "Measurement"
// @Success      201   {object}  models.Measurement
// @Failure      400   {object}  map[string]string
// @Router       /measurements [post]
func (h *MeasurementHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.measurements.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// @Summary      List measurements
// @Description  Newest first. from is inclusive, to is exclusive (RFC 3339).
// @Tags         Measurements
// @Produce      json
// @Security     BearerAuth
// @Param        kind    query     string  false  "Kind"
// @Param        from    query     string  false  "From (RFC 3339)"
// @Param        to      query     string  false  "To (RFC 3339)"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {array}   models.Measurement
// @Failure      400     {object}  map[string]string
// @Router       /measurements [get]
func (h *MeasurementHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.measurements.List(c.Request.Context(), userID, f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Measurement{}
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Get measurement
// @Tags         Measurements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Measurement ID"
// @Success      200  {object}  models.Measurement
// @Failure      404  {object}  map[string]string
// @Router       /measurements/{id} [get]
func (h *MeasurementHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.measurements.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary      Update measurement
// @Tags         Measurements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                     true  "Measurement ID"
// @Param        body  body      models.MeasurementRequest  true  "Measurement"
// @Success      200   {object}  models.Measurement
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /measurements/{id} [put]
func (h *MeasurementHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.measurements.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary      Delete measurement
// @Tags         Measurements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Measurement ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /measurements/{id} [delete]
func (h *MeasurementHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.measurements.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Measurement deleted")
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseFilter(c *gin.Context) (models.MeasurementFilter, error) {
	f := models.MeasurementFilter{Kind: models.MeasurementKind(c.Query("kind"))}

	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s: expected RFC 3339 time", name)
		}
		*dst = &t
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid %s", name)
		}
		*dst = n
	}
	return f, nil
}
