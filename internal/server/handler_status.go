package server

import (
	"fmt"
	"net/http"
	"time"

	"modelserve/internal/core"
	"modelserve/internal/metrics"

	"github.com/gin-gonic/gin"
)

func (s *Server) healthCheck(c *gin.Context) {
	if !s.models.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "model_loaded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "model_loaded": true})
}

func (s *Server) modelInfo(c *gin.Context) {
	loaded, err := s.models.Current()
	if err != nil {
		status, detail := statusForError(err)
		respondWithDetail(c, status, detail)
		return
	}
	c.JSON(http.StatusOK, loaded.Info())
}

func (s *Server) getStatsData(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	periodStats := metrics.GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)
	currentQPS := s.metricsService.GetQPS()

	var cacheHitRate float64
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		cacheHitRate = float64(stats.CacheHits) / float64(lookups) * 100
	}

	resp := gin.H{
		"currentTime":        time.Now().Format(core.TimeFormatDateTime),
		"currentQPS":         fmt.Sprintf("%.3f", currentQPS),
		"totalRequests":      stats.TotalRequests,
		"successfulRequests": stats.SuccessfulRequests,
		"failedRequests":     stats.FailedRequests,
		"totalRecords":       len(stats.RequestHistory),
		"cacheHits":          stats.CacheHits,
		"cacheMisses":        stats.CacheMisses,
		"cacheHitRate":       cacheHitRate,
		"stats24h":           periodStats[24],
		"stats7d":            periodStats[24*7],
		"stats30d":           periodStats[24*30],
		"modelLoaded":        s.models.Ready(),
	}

	if memory, err := metrics.HostMemory(); err != nil {
		s.config.Logger.Debug("Host memory unavailable: %v", err)
	} else {
		resp["memory"] = memory
	}

	c.JSON(http.StatusOK, resp)
}
