package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/authz"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	publisher    shared.EventPublisher
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	publisher shared.EventPublisher,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

// Create creates a new product under a non-deleted category
func (s *ProductService) Create(ctx context.Context, actor authz.Actor, req CreateProductRequest) (*ProductResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCreate, authz.Collection(authz.ResourceProduct)); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(actor.UserID, req.CategoryID, req.Name, req.Price, req.Stock, req.Description)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive {
		product.SetActive(actor.UserID, false)
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID retrieves a non-deleted product
func (s *ProductService) GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ProductResponse, error) {
	if err := authz.Authorize(actor, authz.ActionRetrieve, authz.Collection(authz.ResourceProduct)); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id, shared.FindOptions{})
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List retrieves non-deleted products
func (s *ProductService) List(ctx context.Context, actor authz.Actor, filter ProductListFilter) (*shared.Paginated[ProductResponse], error) {
	if err := authz.Authorize(actor, authz.ActionList, authz.Collection(authz.ResourceProduct)); err != nil {
		return nil, err
	}

	domainFilter := shared.NewListFilter(filter.Page, filter.PageSize, filter.Search, filter.Ordering)
	if filter.CategoryID != nil {
		domainFilter.Filters["category"] = *filter.CategoryID
	}
	if filter.IsActive != nil {
		domainFilter.Filters["is_active"] = *filter.IsActive
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToProductResponses(products), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Update applies a partial update
func (s *ProductService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	if err := authz.Authorize(actor, authz.ActionUpdate, authz.Collection(authz.ResourceProduct)); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	product, err := s.productRepo.Modify(ctx, id, shared.FindOptions{}, func(p *catalog.Product) error {
		verr := &shared.ValidationError{}
		if req.Name != nil || req.Description != nil {
			name, description := p.Name, p.Description
			if req.Name != nil {
				name = *req.Name
			}
			if req.Description != nil {
				description = *req.Description
			}
			collect(verr, p.Rename(actor.UserID, name, description))
		}
		if req.Price != nil {
			collect(verr, p.SetPrice(actor.UserID, *req.Price))
		}
		if req.Stock != nil {
			collect(verr, p.SetStock(actor.UserID, *req.Stock))
		}
		if req.CategoryID != nil {
			collect(verr, p.MoveToCategory(actor.UserID, *req.CategoryID))
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		if req.IsActive != nil {
			p.SetActive(actor.UserID, *req.IsActive)
		}
		p.StampUpdatedBy(actor.UserID)
		p.MarkChanged(actor.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// SoftDelete hides a product. Deleting an already deleted product succeeds.
func (s *ProductService) SoftDelete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionSoftDelete, authz.Collection(authz.ResourceProduct)); err != nil {
		return err
	}

	product, err := s.productRepo.Modify(ctx, id, shared.FindOptions{IncludeDeleted: true}, func(p *catalog.Product) error {
		p.SoftDelete(actor.UserID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, product)
	return nil
}

// Restore brings back a soft-deleted product
func (s *ProductService) Restore(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionRestore, authz.Collection(authz.ResourceProduct)); err != nil {
		return err
	}

	product, err := s.productRepo.Modify(ctx, id, shared.FindOptions{IncludeDeleted: true}, func(p *catalog.Product) error {
		p.Restore(actor.UserID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, product)
	return nil
}

func (s *ProductService) checkCategory(ctx context.Context, categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return shared.NewValidationError("category", "This field is required")
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID, shared.FindOptions{}); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError("category", invalidPK(categoryID))
		}
		return err
	}
	return nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	if err := shared.PublishAndClear(ctx, s.publisher, product); err != nil {
		logger.L(ctx).Error("Failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
	}
}

func collect(verr *shared.ValidationError, err error) {
	if err == nil {
		return
	}
	var fe *shared.ValidationError
	if errors.As(err, &fe) {
		verr.Fields = append(verr.Fields, fe.Fields...)
		return
	}
	verr.Add("non_field_errors", err.Error())
}
