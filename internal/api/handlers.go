package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listingsportal/server/internal/database"
	"listingsportal/server/internal/models"
	"listingsportal/server/internal/reconcile"
	"listingsportal/server/internal/scheduler"
	"listingsportal/server/internal/search"
)

// ListingSearcher is the read path used by the handlers.
type ListingSearcher interface {
	Search(ctx context.Context, filter search.Filter, page, pageSize int) (*search.Result, error)
	Get(ctx context.Context, id int64) (*models.Listing, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ReconcileTrigger starts a reconciliation cycle on demand.
type ReconcileTrigger interface {
	RunNow(ctx context.Context) (*reconcile.Result, error)
}

type Handler struct {
	searcher   ListingSearcher
	store      Pinger
	reconciler ReconcileTrigger
	logger     *logrus.Logger
}

// NewHandler wires the handlers; reconciler may be nil to disable the manual trigger.
func NewHandler(searcher ListingSearcher, store Pinger, reconciler ReconcileTrigger, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		searcher:   searcher,
		store:      store,
		reconciler: reconciler,
		logger:     logger,
	}
}

// filterQuery holds the filters shared by every listing search.
type filterQuery struct {
	Type          string  `form:"type"`
	DaysOld       int     `form:"daysOld"`
	Bedrooms      float64 `form:"bedrooms"`
	Bathrooms     float64 `form:"bathrooms"`
	YearBuilt     int     `form:"yearBuilt"`
	SquareFootage int     `form:"squareFootage"`
	MinPrice      int64   `form:"minPrice,default=-1"`
	MaxPrice      int64   `form:"maxPrice,default=-1"`
	Page          string  `form:"page"`
	PageSize      string  `form:"pageSize"`
}

type rangeQuery struct {
	filterQuery
	Latitude  *float64 `form:"latitude" binding:"required"`
	Longitude *float64 `form:"longitude" binding:"required"`
	Radius    *float64 `form:"radius" binding:"required"`
}

type countiesQuery struct {
	filterQuery
	Counties []string `form:"counties"`
}

func (q filterQuery) toFilter() (search.Filter, error) {
	f := search.NewFilter()

	switch {
	case q.Type == "" || strings.EqualFold(q.Type, string(models.ListingTypeRent)):
		f.Type = models.ListingTypeRent
	case strings.EqualFold(q.Type, string(models.ListingTypeSale)):
		f.Type = models.ListingTypeSale
	default:
		return f, &search.ValidationError{Message: fmt.Sprintf("unknown listing type %q, expected rent or sale", q.Type)}
	}

	f.DaysOld = q.DaysOld
	f.MinBedrooms = q.Bedrooms
	f.MinBathrooms = q.Bathrooms
	f.YearBuilt = q.YearBuilt
	f.SquareFootage = q.SquareFootage
	f.MinPrice = q.MinPrice
	f.MaxPrice = q.MaxPrice
	return f, nil
}

// pagination returns the requested page and page size. Unparsable values fall
// back to the defaults and the engine clamps the rest.
func (q filterQuery) pagination() (int, int) {
	return queryInt(q.Page, 1), queryInt(q.PageSize, search.DefaultPageSize)
}

func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err == nil {
		return n
	}
	// Atoi saturates on overflow
	if errors.Is(err, strconv.ErrRange) {
		return n
	}
	return def
}

// GetByRange searches listings within radius miles of a point.
func (h *Handler) GetByRange(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, fmt.Sprintf("invalid range query: %v", err))
		return
	}

	filter, err := q.toFilter()
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	filter.Area = &search.Area{
		Latitude:    *q.Latitude,
		Longitude:   *q.Longitude,
		RadiusMiles: *q.Radius,
	}

	page, pageSize := q.pagination()
	h.search(c, filter, page, pageSize)
}

// GetByCounties searches listings in any of the given counties.
func (h *Handler) GetByCounties(c *gin.Context) {
	var q countiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, fmt.Sprintf("invalid counties query: %v", err))
		return
	}

	filter, err := q.toFilter()
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	filter.Counties = search.ParseCounties(q.Counties)

	page, pageSize := q.pagination()
	h.search(c, filter, page, pageSize)
}

func (h *Handler) search(c *gin.Context, filter search.Filter, page, pageSize int) {
	result, err := h.searcher.Search(c.Request.Context(), filter, page, pageSize)
	if errors.Is(err, search.ErrInvalidFilter) {
		h.badRequest(c, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("Failed to search listings")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "failed to query listings"})
		return
	}

	c.JSON(http.StatusOK, newPageResponse(result))
}

// GetByID returns a single listing with its sub-records.
func (h *Handler) GetByID(c *gin.Context) {
	rawID := c.Param("id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.badRequest(c, fmt.Sprintf("invalid listing ID '%s'", rawID))
		return
	}

	listing, err := h.searcher.Get(c.Request.Context(), id)
	if database.IsNotFound(err) {
		c.JSON(http.StatusNotFound, MessageResponse{Message: fmt.Sprintf("Unable to find listing with ID '%d'", id)})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("listing_id", id).Error("Failed to get listing")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: "failed to get listing"})
		return
	}

	c.JSON(http.StatusOK, NewListingDTO(listing))
}

// TriggerReconcile runs a reconciliation cycle and reports its counts.
func (h *Handler) TriggerReconcile(c *gin.Context) {
	result, err := h.reconciler.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		c.JSON(http.StatusConflict, MessageResponse{Message: "reconciliation already running"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Manual reconciliation failed")
		c.JSON(http.StatusBadGateway, MessageResponse{Message: fmt.Sprintf("reconciliation failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fetched":    result.Fetched,
		"duplicates": result.Duplicates,
		"inserted":   result.Inserted,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
		"deleted":    result.Deleted,
	})
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) badRequest(c *gin.Context, message string) {
	h.logger.WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"request_id": c.GetString(requestIDKey),
	}).Debug(message)
	c.JSON(http.StatusBadRequest, MessageResponse{Message: message})
}
