package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dzpay/bankcore/pkg/models"
)

const userIDKey = "user_id"

// authMiddleware requires the caller identity header supplied by the
// authentication gateway in front of this engine.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("User-Id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "AUTHENTICATION_REQUIRED",
				"message": "User authentication required",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// profileFromHeaders assembles the behavioral profile the fraud screen
// consumes. Headers the gateway did not supply leave their signal without
// data, which the scorer skips.
func profileFromHeaders(c *gin.Context) models.BehaviorProfile {
	profile := models.BehaviorProfile{
		UserID:    c.GetString(userIDKey),
		NewDevice: c.GetHeader("X-New-Device") == "true",
	}
	if p := parseGeoPoint(c.GetHeader("X-Last-Location")); p != nil {
		profile.LastLocation = p
	}
	if p := parseGeoPoint(c.GetHeader("X-Current-Location")); p != nil {
		profile.CurrentLocation = p
	}
	if raw := c.GetHeader("X-Average-Amount"); raw != "" {
		if avg, err := decimal.NewFromString(raw); err == nil && avg.IsPositive() {
			profile.AverageAmount = &avg
		}
	}
	return profile
}

// parseGeoPoint parses "lat,lon" headers.
func parseGeoPoint(raw string) *models.GeoPoint {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return nil
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return nil
	}
	return &models.GeoPoint{Lat: lat, Lon: lon}
}
