package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/dto"
	"github.com/ignatzorin/citesignal-backend/internal/http/response"
)

// ReferenceCatalog справочники кварталов и департаментов.
type ReferenceCatalog interface {
	Neighborhoods(ctx context.Context) ([]entity.Neighborhood, error)
	Departments(ctx context.Context) ([]entity.Department, error)
}

type ReferenceHandler struct {
	references ReferenceCatalog
}

func NewReferenceHandler(references ReferenceCatalog) *ReferenceHandler {
	return &ReferenceHandler{references: references}
}

// Neighborhoods обрабатывает GET /api/neighborhoods.
func (h *ReferenceHandler) Neighborhoods(c *gin.Context) {
	items, err := h.references.Neighborhoods(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.NewNeighborhoodResponses(items))
}

// Departments обрабатывает GET /api/departments.
func (h *ReferenceHandler) Departments(c *gin.Context) {
	items, err := h.references.Departments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.NewDepartmentResponses(items))
}
