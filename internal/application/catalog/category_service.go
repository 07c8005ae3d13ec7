package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/authz"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Tree depth bounds
const (
	DefaultTreeDepth = 3
	MaxTreeDepth     = 10
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	publisher    shared.EventPublisher
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	publisher shared.EventPublisher,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, actor authz.Actor, req CreateCategoryRequest) (*CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCreate, authz.Collection(authz.ResourceCategory)); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if err := s.checkParentExists(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	category, err := catalog.NewCategory(actor.UserID, req.Name, req.Description, req.ParentID)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive {
		category.SetActive(actor.UserID, false)
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// GetByID retrieves a non-deleted category
func (s *CategoryService) GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionRetrieve, authz.Collection(authz.ResourceCategory)); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindByID(ctx, id, shared.FindOptions{})
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// List retrieves non-deleted categories
func (s *CategoryService) List(ctx context.Context, actor authz.Actor, filter CategoryListFilter) (*shared.Paginated[CategoryResponse], error) {
	if err := authz.Authorize(actor, authz.ActionList, authz.Collection(authz.ResourceCategory)); err != nil {
		return nil, err
	}

	domainFilter := shared.NewListFilter(filter.Page, filter.PageSize, filter.Search, filter.Ordering)
	switch filter.Parent {
	case "":
	case "null":
		domainFilter.Filters["parent"] = nil
	default:
		parentID, err := uuid.Parse(filter.Parent)
		if err != nil {
			return nil, shared.NewValidationError("parent", "Must be a valid UUID.")
		}
		domainFilter.Filters["parent"] = parentID
	}
	if filter.IsActive != nil {
		domainFilter.Filters["is_active"] = *filter.IsActive
	}

	categories, err := s.categoryRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.categoryRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToCategoryResponses(categories), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Update applies a partial update. Moving a category under itself or one
// of its descendants is rejected by the store inside the write.
func (s *CategoryService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionUpdate, authz.Collection(authz.ResourceCategory)); err != nil {
		return nil, err
	}

	if req.Parent.Set && req.Parent.Value != nil {
		if err := s.checkParentExists(ctx, *req.Parent.Value); err != nil {
			return nil, err
		}
	}

	category, err := s.categoryRepo.Modify(ctx, id, shared.FindOptions{}, func(c *catalog.Category) error {
		if req.Name != nil || req.Description != nil {
			name, description := c.Name, c.Description
			if req.Name != nil {
				name = *req.Name
			}
			if req.Description != nil {
				description = *req.Description
			}
			if err := c.Update(actor.UserID, name, description); err != nil {
				return err
			}
		}
		if req.Parent.Set {
			if err := c.SetParent(req.Parent.Value); err != nil {
				return err
			}
		}
		if req.IsActive != nil {
			c.SetActive(actor.UserID, *req.IsActive)
		}
		c.StampUpdatedBy(actor.UserID)
		c.MarkChanged(actor.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, category)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// SoftDelete hides a category. Deleting an already deleted category succeeds.
func (s *CategoryService) SoftDelete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionSoftDelete, authz.Collection(authz.ResourceCategory)); err != nil {
		return err
	}

	category, err := s.categoryRepo.Modify(ctx, id, shared.FindOptions{IncludeDeleted: true}, func(c *catalog.Category) error {
		c.SoftDelete(actor.UserID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, category)
	return nil
}

// Restore brings back a soft-deleted category
func (s *CategoryService) Restore(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionRestore, authz.Collection(authz.ResourceCategory)); err != nil {
		return err
	}

	category, err := s.categoryRepo.Modify(ctx, id, shared.FindOptions{IncludeDeleted: true}, func(c *catalog.Category) error {
		c.Restore(actor.UserID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, category)
	return nil
}

// Tree materializes the subtree rooted at id. depth 1 returns the root
// with its direct children; depth is capped at MaxTreeDepth.
func (s *CategoryService) Tree(ctx context.Context, actor authz.Actor, id uuid.UUID, depth int) (*CategoryTreeNode, error) {
	if err := authz.Authorize(actor, authz.ActionRetrieve, authz.Collection(authz.ResourceCategory)); err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, shared.NewValidationError("depth", "Ensure this value is greater than or equal to 1.")
	}
	if depth > MaxTreeDepth {
		depth = MaxTreeDepth
	}

	root, err := s.categoryRepo.FindByID(ctx, id, shared.FindOptions{})
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{root.ID: true}
	node, err := s.materialize(ctx, root, depth, visited)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *CategoryService) materialize(ctx context.Context, c *catalog.Category, depth int, visited map[uuid.UUID]bool) (CategoryTreeNode, error) {
	node := CategoryTreeNode{
		CategoryResponse: ToCategoryResponse(c),
		Subcategories:    []CategoryTreeNode{},
	}
	if depth == 0 {
		return node, nil
	}

	children, err := s.categoryRepo.FindChildren(ctx, c.ID, shared.FindOptions{})
	if err != nil {
		return node, err
	}
	for i := range children {
		child := &children[i]
		if visited[child.ID] {
			logger.L(ctx).Warn("Category cycle detected", zap.String("category_id", child.ID.String()))
			continue
		}
		visited[child.ID] = true
		sub, err := s.materialize(ctx, child, depth-1, visited)
		if err != nil {
			return node, err
		}
		node.Subcategories = append(node.Subcategories, sub)
	}
	return node, nil
}

func (s *CategoryService) checkParentExists(ctx context.Context, parentID uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, parentID, shared.FindOptions{}); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError("parent", invalidPK(parentID))
		}
		return err
	}
	return nil
}

func (s *CategoryService) publish(ctx context.Context, category *catalog.Category) {
	if err := shared.PublishAndClear(ctx, s.publisher, category); err != nil {
		logger.L(ctx).Error("Failed to publish category events",
			zap.String("category_id", category.ID.String()),
			zap.Error(err),
		)
	}
}

func invalidPK(id uuid.UUID) string {
	return fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)
}
