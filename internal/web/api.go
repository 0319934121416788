package web

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/undeadpelmen/acbot/internal/comfort"
	"github.com/undeadpelmen/acbot/internal/controller"
	"github.com/undeadpelmen/acbot/internal/logging"
	"github.com/undeadpelmen/acbot/internal/sensor"
	"github.com/undeadpelmen/acbot/internal/settings"
)

const Version = "1.0.0"

type Status interface {
	Snapshot() controller.Snapshot
	History(limit int) []controller.Report
	HistoryCount() int
	Settings() (settings.Settings, bool)
}

type WebAPI struct {
	status Status
	probe  sensor.Source
	loc    *time.Location
	log    zerolog.Logger
	now    func() time.Time
}

// NewWebAPI serves a read-only view of the controller. probe may be nil when
// no sensor is wired.
func NewWebAPI(status Status, probe sensor.Source, loc *time.Location, log zerolog.Logger) *WebAPI {
	if loc == nil {
		loc = time.Local
	}
	return &WebAPI{status: status, probe: probe, loc: loc, log: log, now: time.Now}
}

func (api *WebAPI) hour() int {
	return api.now().In(api.loc).Hour()
}

func fail(c *gin.Context, code int, format string, args ...any) {
	c.JSON(code, gin.H{
		"status":  "error",
		"message": fmt.Sprintf(format, args...),
	})
}

func (api *WebAPI) getState(c *gin.Context) {
	snap := api.status.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"timestamp": api.now().Format(time.RFC3339),
			"ac": gin.H{
				"state":       snap.State,
				"warnings":    snap.Warnings,
				"last_on_at":  snap.LastOnAt,
				"last_off_at": snap.LastOffAt,
				"press_count": snap.Presses,
			},
			"last_cycle": snap.LastReport,
			"system": gin.H{
				"run_id":      snap.RunID,
				"cycle_count": snap.Cycles,
				"uptime":      int(api.now().Sub(snap.StartedAt).Seconds()),
			},
		},
	})
}

func (api *WebAPI) getHistory(c *gin.Context) {
	limit := 100
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "invalid limit %q", s)
			return
		}
		limit = n
	}

	history := api.status.History(limit)

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   history,
		"meta": gin.H{
			"count": len(history),
			"total": api.status.HistoryCount(),
			"limit": limit,
		},
	})
}

func (api *WebAPI) getSettings(c *gin.Context) {
	s, ok := api.status.Settings()
	if !ok {
		fail(c, http.StatusServiceUnavailable, "settings have not been loaded yet")
		return
	}
	on, off := s.Thresholds(api.hour())
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   s,
		"derived": gin.H{
			"turn_on_enabled": s.TurnOnEnabled(),
			"on_threshold":    on,
			"off_threshold":   off,
		},
	})
}

func (api *WebAPI) getHealth(c *gin.Context) {
	snap := api.status.Snapshot()

	health := "starting"
	sheet, dht := "unknown", "unknown"
	if r := snap.LastReport; r != nil {
		health, sheet = "healthy", "ok"
		switch r.Outcome {
		case controller.OutcomeConfigError:
			health, sheet = "degraded", "error"
		case controller.OutcomeSensorFault:
			health, dht = "warning", "error"
		case controller.OutcomeDecided:
			dht = "ok"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": health,
		"components": gin.H{
			"settings_sheet": sheet,
			"dht22_sensor":   dht,
			"control_loop":   "running",
			"api_server":     "running",
		},
		"uptime_seconds": int(api.now().Sub(snap.StartedAt).Seconds()),
		"cycle_count":    snap.Cycles,
		"version":        Version,
		"timestamp":      api.now().Format(time.RFC3339),
	})
}

func (api *WebAPI) testSensor(c *gin.Context) {
	if api.probe == nil {
		fail(c, http.StatusServiceUnavailable, "no sensor configured")
		return
	}

	reading, err := sensor.ReadWithRetry(c.Request.Context(), api.probe, 3, sensor.MinPeriod)
	if err != nil {
		api.log.Warn().Err(err).Msg("sensor test failed")
		fail(c, http.StatusInternalServerError, "sensor error: %v", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   reading,
	})
}

func (api *WebAPI) getScore(c *gin.Context) {
	temp, err := strconv.ParseFloat(c.Query("temperature"), 64)
	if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
		fail(c, http.StatusBadRequest, "temperature must be a number")
		return
	}
	humidity, err := strconv.ParseFloat(c.Query("humidity"), 64)
	if err != nil || math.IsNaN(humidity) || math.IsInf(humidity, 0) {
		fail(c, http.StatusBadRequest, "humidity must be a number")
		return
	}

	s, ok := api.status.Settings()
	if !ok {
		fail(c, http.StatusServiceUnavailable, "settings have not been loaded yet")
		return
	}

	on, off := s.Thresholds(api.hour())
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"temperature":   temp,
			"humidity":      humidity,
			"feels_like":    comfort.HeatIndex(temp, humidity),
			"score":         comfort.Score(temp, humidity, s.Comfort()),
			"on_threshold":  on,
			"off_threshold": off,
		},
	})
}

func (api *WebAPI) SetupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.Gin(api.log))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	apiRoute := router.Group("/api/v1")
	{
		apiRoute.GET("/state", api.getState)
		apiRoute.GET("/history", api.getHistory)
		apiRoute.GET("/settings", api.getSettings)
		apiRoute.GET("/health", api.getHealth)
		apiRoute.GET("/sensor/test", api.testSensor)
		apiRoute.GET("/score", api.getScore)
	}

	return router
}
