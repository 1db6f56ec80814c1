package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/models"
	"github.com/pmcopilot/backend/internal/service"
	"github.com/pmcopilot/backend/internal/verticals"
)

type Handler struct {
	Store       *db.Store
	Insights    *service.InsightService
	Suggestions *service.SuggestionService
	Calibration *service.CalibrationService
	Query       *service.QueryService
	Review      *service.ReviewService
	Analytics   *service.AnalyticsService
	Validator   *validator.Validate
	Logger      zerolog.Logger

	InsightCache *service.TTLCache[service.InsightResult]
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Build themes over the recent ticket window
// @Tags insights
// @Produce json
// @Param days query int false "window in days" default(30)
// @Param k query int false "cluster count" default(6)
// @Param include_internal query bool false "include internal-only tickets"
// @Success 200 {object} service.InsightResult
// @Router /api/insights/themes [get]
func (h *Handler) InsightThemes(c *gin.Context) {
	days, k, includeInternal := windowParams(c)
	result, err := h.Insights.BuildThemes(c.Request.Context(), days, k, includeInternal)
	if err != nil {
		h.Logger.Error().Err(err).Msg("theme build failed")
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Theme build failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// InsightThemesFiltered serves the filtered build through the TTL cache;
// repeated dashboard polls within the TTL reuse the last run.
func (h *Handler) InsightThemesFiltered(c *gin.Context) {
	days, k, includeInternal := windowParams(c)
	f := filterParams(c)

	key := fmt.Sprintf("themes|%d|%d|%t|%s|%s|%s", days, k, includeInternal, f.Source, f.Kind, f.Vertical)
	if cached, ok := h.InsightCache.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	result, err := h.Insights.BuildThemesFiltered(c.Request.Context(), days, k, includeInternal, f)
	if err != nil {
		h.Logger.Error().Err(err).Msg("filtered theme build failed")
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Theme build failed", err.Error())
		return
	}
	h.InsightCache.Set(key, result)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) InsightTop10(c *gin.Context) {
	days, k, includeInternal := windowParams(c)
	f := filterParams(c)
	result, err := h.Insights.BuildThemesFiltered(c.Request.Context(), days, k, includeInternal, f)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Theme build failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":       result.RunID,
		"top_issues":   result.TopIssues,
		"top_features": result.TopFeatures,
	})
}

// @Summary Prioritized theme suggestions
// @Tags insights
// @Produce json
// @Success 200 {object} service.SuggestionResult
// @Router /api/insights/suggest [get]
func (h *Handler) Suggest(c *gin.Context) {
	days, k, includeInternal := windowParams(c)
	top, _ := strconv.Atoi(c.DefaultQuery("top", "5"))
	result, err := h.Suggestions.Suggest(c.Request.Context(), days, k, top, includeInternal, filterParams(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Suggestion build failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CalibrationSweep(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	result, err := h.Calibration.PrecisionCoverage(c.Request.Context(), days, sourcesParam(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Calibration failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CalibrationByVertical(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	threshold, err := strconv.ParseFloat(c.DefaultQuery("threshold", "0.8"), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "threshold must be in [0,1]", nil)
		return
	}
	result, err := h.Calibration.ByVertical(c.Request.Context(), days, sourcesParam(c), threshold)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Calibration failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

type askRequest struct {
	Question        string `json:"question"`
	Days            int    `json:"days"`
	TopK            int    `json:"top_k"`
	Source          string `json:"source"`
	Type            string `json:"type"`
	Vertical        string `json:"vertical"`
	IncludeInternal bool   `json:"include_internal"`
}

// @Summary Semantic search over ticket embeddings
// @Tags query
// @Accept json
// @Produce json
// @Param request body askRequest true "question and filters"
// @Success 200 {object} service.QueryResult
// @Router /api/ask [post]
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if req.Days <= 0 {
		req.Days = 30
	}
	result, err := h.Query.Answer(c.Request.Context(), req.Question, req.Days, req.TopK, req.IncludeInternal,
		service.InsightFilter{Source: req.Source, Kind: req.Type, Vertical: req.Vertical})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Query failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) VerticalsList(c *gin.Context) {
	items := make([]gin.H, 0, len(verticals.Catalog))
	for i := range verticals.Catalog {
		v := &verticals.Catalog[i]
		items = append(items, gin.H{
			"slug":          v.Slug,
			"name":          v.Name,
			"keywords":      len(v.Keywords),
			"jira_projects": len(v.JiraProjects),
			"jira_labels":   len(v.JiraLabels),
			"zendesk_tags":  len(v.ZendeskTags),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) LabelFrequencies(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	minCount, _ := strconv.Atoi(c.DefaultQuery("min_count", "1"))
	top, _ := strconv.Atoi(c.DefaultQuery("top", "50"))
	includeInternal := c.Query("include_internal") == "true"
	result, err := h.Analytics.LabelFrequencies(c.Request.Context(), days, c.Query("source"), minCount, top, includeInternal)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to compute label frequencies", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ExportTop10CSV(c *gin.Context) {
	days, k, includeInternal := windowParams(c)
	result, err := h.Insights.BuildThemesFiltered(c.Request.Context(), days, k, includeInternal, filterParams(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Theme build failed", err.Error())
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"list", "id", "title", "source", "url", "type"})
	for _, t := range result.TopIssues {
		_ = cw.Write([]string{"top_issues", strconv.FormatInt(t.ID, 10), t.Title, t.Source, t.URL, t.Type})
	}
	for _, t := range result.TopFeatures {
		_ = cw.Write([]string{"top_features", strconv.FormatInt(t.ID, 10), t.Title, t.Source, t.URL, t.Type})
	}
	cw.Flush()
	serveCSV(c, "top10.csv", buf.Bytes())
}

func (h *Handler) ExportThemesCSV(c *gin.Context) {
	days, k, includeInternal := windowParams(c)
	result, err := h.Insights.BuildThemesFiltered(c.Request.Context(), days, k, includeInternal, filterParams(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Theme build failed", err.Error())
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"run_id", "label", "hint", "type", "size"})
	for _, th := range result.Themes {
		_ = cw.Write([]string{result.RunID, strconv.Itoa(th.Label), th.Hint, th.Type, strconv.Itoa(th.Size)})
	}
	cw.Flush()
	serveCSV(c, "themes.csv", buf.Bytes())
}

type syncRequest struct {
	Items []models.NormalizedTicket `json:"items"`
}

// @Summary Ingest a batch of normalized tickets
// @Tags sync
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/sync/tickets [post]
func (h *Handler) SyncTickets(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "items must not be empty", nil)
		return
	}
	for i, it := range req.Items {
		if err := h.Validator.Struct(it); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("item %d failed validation", i), err.Error())
			return
		}
	}

	upserted, err := h.Store.UpsertTickets(c.Request.Context(), req.Items)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to upsert tickets", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": len(req.Items), "upserted": upserted})
}

func (h *Handler) VerticalsBackfill(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	scanned, labeled, err := h.Insights.BackfillVerticals(c.Request.Context(), days)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Backfill failed", err.Error())
		return
	}
	h.InsightCache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"scanned": scanned, "labeled": labeled})
}

func (h *Handler) ReviewSample(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	perBin, _ := strconv.Atoi(c.DefaultQuery("per_bin", "10"))
	seed, _ := strconv.ParseInt(c.DefaultQuery("seed", "42"), 10, 64)
	bins := service.ParseBins(c.Query("bins"))

	items, err := h.Review.Sample(c.Request.Context(), days, perBin, seed, bins)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to sample predictions", err.Error())
		return
	}

	if c.DefaultQuery("format", "json") == "csv" {
		var buf bytes.Buffer
		if err := service.WriteCSV(&buf, items); err != nil {
			writeError(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render CSV", err.Error())
			return
		}
		serveCSV(c, "review_sample.csv", buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

type submitLabelsRequest struct {
	Reviewer string                    `json:"reviewer"`
	Items    []service.LabelSubmission `json:"items" binding:"required"`
}

func (h *Handler) SubmitLabels(c *gin.Context) {
	var req submitLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	updated, err := h.Review.SubmitLabels(c.Request.Context(), req.Items, req.Reviewer)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store labels", err.Error())
		return
	}
	h.InsightCache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func windowParams(c *gin.Context) (days, k int, includeInternal bool) {
	days, _ = strconv.Atoi(c.DefaultQuery("days", "30"))
	k, _ = strconv.Atoi(c.DefaultQuery("k", "6"))
	includeInternal = c.Query("include_internal") == "true"
	return days, k, includeInternal
}

func filterParams(c *gin.Context) service.InsightFilter {
	return service.InsightFilter{
		Source:   c.Query("source"),
		Kind:     c.Query("type"),
		Vertical: c.Query("vertical"),
	}
}

func sourcesParam(c *gin.Context) []string {
	raw := c.DefaultQuery("sources", "jira,zendesk")
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func serveCSV(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
