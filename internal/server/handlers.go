package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
	"github.com/Sternrassler/vocab-enricher/pkg/batch"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string      `json:"error"`
	Code  apierr.Code `json:"code,omitempty"`
}

type EnrichRequest struct {
	Term     string `json:"term" binding:"required"`
	Sentence string `json:"sentence"`
}

type BatchRequest struct {
	Terms       []string `json:"terms" binding:"required,min=1"`
	Concurrency int      `json:"concurrency" binding:"omitempty,min=1"`
}

type BatchItem struct {
	Term    string             `json:"term"`
	Success bool               `json:"success"`
	Data    *enrichment.Record `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type BatchResponse struct {
	Results   []BatchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type PurgeResponse struct {
	Purged int `json:"purged"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: s.cfg.Version,
	})
}

func (s *Server) enrich(c *gin.Context) {
	var req EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apierr.CodeMissingField, err.Error())
		return
	}

	rec, err := s.enricher.Enrich(c.Request.Context(), req.Term, enrichment.Context{Sentence: req.Sentence})
	if err != nil {
		s.respondEnrichError(c, req.Term, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apierr.CodeMissingField, err.Error())
		return
	}
	if len(req.Terms) > s.cfg.MaxBatchSize {
		respondError(c, http.StatusBadRequest, 0,
			fmt.Sprintf("batch size %d exceeds maximum of %d", len(req.Terms), s.cfg.MaxBatchSize))
		return
	}

	opts := s.cfg.Batch
	if req.Concurrency > 0 && req.Concurrency < opts.Concurrency {
		opts.Concurrency = req.Concurrency
	}

	results := batch.Process[enrichment.Record](c.Request.Context(), req.Terms,
		func(ctx context.Context, term string) (enrichment.Record, error) {
			return s.enricher.Enrich(ctx, term, enrichment.Context{})
		}, opts)

	resp := BatchResponse{Results: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{Term: r.Item, Success: r.Success}
		if r.Success {
			rec := r.Data
			item.Data = &rec
			resp.Succeeded++
		} else {
			item.Error = r.Error()
			resp.Failed++
		}
		resp.Results[i] = item
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) purge(c *gin.Context) {
	n, err := s.purger.PurgeExpired(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Cache purge failed")
		respondError(c, http.StatusServiceUnavailable, apierr.CodeDatabaseFailure, "cache purge failed")
		return
	}
	c.JSON(http.StatusOK, PurgeResponse{Purged: n})
}

func (s *Server) respondEnrichError(c *gin.Context, term string, err error) {
	var apiErr *apierr.Error
	if apierr.IsValidation(err) && errors.As(err, &apiErr) {
		respondError(c, http.StatusBadRequest, apiErr.Code, apiErr.Message)
		return
	}
	s.logger.Error().Err(err).Str("term", term).Msg("Enrichment failed")
	respondError(c, http.StatusInternalServerError, apierr.CodeEnrichmentFailed, "enrichment failed")
}

func respondError(c *gin.Context, status int, code apierr.Code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
