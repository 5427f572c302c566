package tiers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

type Store interface {
	ListTiers(ctx context.Context) ([]models.Tier, error)
}

// List serves the public pricing catalog.
func List(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tiers, err := st.ListTiers(c.Request.Context())
		if err != nil {
			handlers.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tiers": tiers})
	}
}
