package delivery

import (
	"net/http"

	authdelivery "inquiry-backend/internal/auth/delivery"
	"inquiry-backend/internal/catalog/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUsecase
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{catalogUsecase: catalogUsecase}
}

// ListServices returns the whole catalog. Signed-in viewers are only logged.
// GET /api/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	services, err := h.catalogUsecase.ListServices(c.Request.Context())
	if err != nil {
		logrus.WithError(err).WithField("component", "catalog").Error("list services failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch services"})
		return
	}

	if userID, ok := authdelivery.SubjectID(c); ok {
		logrus.WithFields(logrus.Fields{"component": "catalog", "user_id": userID}).Debug("catalog viewed")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": services})
}
