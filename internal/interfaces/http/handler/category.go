package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/taskprod/backend/internal/application/catalog"
	"github.com/taskprod/backend/internal/domain/shared"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Create godoc
// @Summary      Create a new category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateCategoryRequest true "Category creation request"
// @Success      201 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req catalogapp.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, category)
}

// GetByID godoc
// @Summary      Get category by ID
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, category)
}

// List godoc
// @Summary      List categories
// @Description  Paginated list of non-deleted categories. parent=null selects roots.
// @Tags         categories
// @Produce      json
// @Param        search query string false "Substring of name or description"
// @Param        parent query string false "Parent category ID or null"
// @Param        is_active query bool false "Active flag"
// @Param        ordering query string false "name, created_at; prefix - for descending"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]catalogapp.CategoryResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	var filter catalogapp.CategoryListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.categoryService.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	SuccessPage(c, page)
}

// Update handles both PUT and PATCH; absent fields are left unchanged
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req catalogapp.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, category)
}

// Delete soft deletes the category and answers 204
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.categoryService.SoftDelete(c.Request.Context(), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SoftDelete godoc
// @Summary      Soft delete a category
// @Tags         categories
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.DetailResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id}/soft-delete [post]
func (h *CategoryHandler) SoftDelete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.categoryService.SoftDelete(c.Request.Context(), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Detail(c, http.StatusOK, "soft deleted")
}

// Restore godoc
// @Summary      Restore a soft deleted category
// @Tags         categories
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=dto.DetailResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id}/restore [post]
func (h *CategoryHandler) Restore(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.categoryService.Restore(c.Request.Context(), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Detail(c, http.StatusOK, "restored")
}

// Tree godoc
// @Summary      Category subtree
// @Description  The category with its subcategories materialized to the given depth
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        depth query int false "Levels below the root" default(3)
// @Success      200 {object} dto.Response{data=catalogapp.CategoryTreeNode}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id}/tree [get]
func (h *CategoryHandler) Tree(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	verr := &shared.ValidationError{}
	depth := queryInt(c, "depth", catalogapp.DefaultTreeDepth, verr)
	if err := verr.OrNil(); err != nil {
		h.HandleError(c, err)
		return
	}

	tree, err := h.categoryService.Tree(c.Request.Context(), actor(c), id, depth)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tree)
}
