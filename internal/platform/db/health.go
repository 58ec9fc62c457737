package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Stats represents database connection statistics.
type Stats struct {
	OpenConns int  `json:"open_conns"`
	InUse     int  `json:"in_use"`
	Idle      int  `json:"idle"`
	Healthy   bool `json:"healthy"`
}

// GetStats returns connection statistics for the underlying sql.DB.
func GetStats(gdb *gorm.DB) *Stats {
	sqlDB, err := gdb.DB()
	if err != nil {
		return &Stats{Healthy: false}
	}
	s := sqlDB.Stats()
	return &Stats{
		OpenConns: s.OpenConnections,
		InUse:     s.InUse,
		Idle:      s.Idle,
		Healthy:   true,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(gdb *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := GetStats(gdb)
		sqlDB, err := gdb.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"stats":  stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"stats":  stats,
		})
	}
}
