package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/logger"
	"github.com/example/chirpolly/internal/review"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

// Snapshots larger than this are rejected
const maxSnapshotBytes = 8 << 20

type ReviewHandler struct {
	log     *logger.Logger
	svc     *review.Service
	catalog *content.Catalog
}

func NewReviewHandler(log *logger.Logger, svc *review.Service, catalog *content.Catalog) *ReviewHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReviewHandler{
		log:     log.With("handler", "ReviewHandler"),
		svc:     svc,
		catalog: catalog,
	}
}

type completeUnitRequest struct {
	Language string `json:"language" binding:"required"`
	UnitID   string `json:"unitId" binding:"required"`
}

type rateRequest struct {
	Quality *srs.Quality `json:"quality" binding:"required"`
}

type previewEntry struct {
	Quality    srs.Quality `json:"quality"`
	Label      string      `json:"label"`
	Interval   int         `json:"interval"`
	EaseFactor float64     `json:"easeFactor"`
	DueDate    time.Time   `json:"dueDate"`
}

// GET /api/languages
func (h *ReviewHandler) ListLanguages(c *gin.Context) {
	RespondOK(c, gin.H{"languages": h.catalog.LanguageCodes()})
}

// GET /api/languages/:lang/modules
func (h *ReviewHandler) ListModules(c *gin.Context) {
	modules, err := h.catalog.Modules(c.Param("lang"))
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"modules": modules})
}

// GET /api/learners/:learner/items
func (h *ReviewHandler) ListItems(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	items, err := h.svc.Items(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"items": nonNil(items)})
}

// GET /api/learners/:learner/due?limit=N
// Due items in review order; every due item when limit is absent.
func (h *ReviewHandler) ListDue(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}
	items, err := h.svc.Due(c.Request.Context(), learnerID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"items": nonNil(items), "count": len(items)})
}

// GET /api/learners/:learner/stats
func (h *ReviewHandler) GetStats(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	summary, err := h.svc.Stats(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, summary)
}

// GET /api/learners/:learner/activity?days=N
// Review counts of the last N days (default 7).
func (h *ReviewHandler) GetActivity(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(c, http.StatusBadRequest, "invalid_days", fmt.Errorf("days must be a positive integer, got %q", raw))
			return
		}
		days = n
	}
	activity, err := h.svc.Activity(c.Request.Context(), learnerID, days)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"days": days, "activity": activity})
}

// POST /api/learners/:learner/units
// Completes a lesson unit and enrolls its new words.
func (h *ReviewHandler) CompleteUnit(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	var req completeUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	added, err := h.svc.CompleteUnit(c.Request.Context(), learnerID, req.Language, req.UnitID)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"added": nonNil(added)})
}

// GET /api/learners/:learner/units?language=xx
func (h *ReviewHandler) ListCompletedUnits(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	units, err := h.svc.CompletedUnits(c.Request.Context(), learnerID, c.Query("language"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if units == nil {
		units = []models.CompletedUnit{}
	}
	RespondOK(c, gin.H{"units": units})
}

// GET /api/learners/:learner/items/:item/preview
func (h *ReviewHandler) PreviewItem(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	preview, err := h.svc.Preview(c.Request.Context(), learnerID, c.Param("item"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]previewEntry, 0, len(srs.Qualities))
	for _, q := range srs.Qualities {
		next := preview[q]
		out = append(out, previewEntry{
			Quality:    q,
			Label:      srs.FormatInterval(next.Interval),
			Interval:   next.Interval,
			EaseFactor: next.EaseFactor,
			DueDate:    next.DueDate,
		})
	}
	RespondOK(c, gin.H{"preview": out})
}

// POST /api/learners/:learner/items/:item/rate
// Body: {"quality": "Good"} or {"quality": 4}
func (h *ReviewHandler) RateItem(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, srs.ErrInvalidQuality) {
			RespondError(c, http.StatusBadRequest, "invalid_quality", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	item, err := h.svc.Rate(c.Request.Context(), learnerID, c.Param("item"), *req.Quality)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, item)
}

// GET /api/learners/:learner/snapshot
// The collection in the web app's local storage format.
func (h *ReviewHandler) ExportSnapshot(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	data, err := h.svc.Export(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// PUT /api/learners/:learner/snapshot?language=xx
// Replaces the collection with the uploaded snapshot. language is required
// when records carry none, as the web client's do.
func (h *ReviewHandler) ImportSnapshot(c *gin.Context) {
	learnerID, ok := learnerParam(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(data) > maxSnapshotBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "snapshot_too_large", fmt.Errorf("snapshot exceeds %d bytes", maxSnapshotBytes))
		return
	}
	n, err := h.svc.Import(c.Request.Context(), learnerID, c.Query("language"), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"imported": n})
}

func (h *ReviewHandler) fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		RespondError(c, status, code, errors.New("internal error"))
		return
	}
	RespondError(c, status, code, err)
}

func learnerParam(c *gin.Context) (int64, bool) {
	raw := c.Param("learner")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_learner", fmt.Errorf("invalid learner id %q", raw))
		return 0, false
	}
	return id, true
}

func nonNil(items []models.VocabularyItem) []models.VocabularyItem {
	if items == nil {
		return []models.VocabularyItem{}
	}
	return items
}
