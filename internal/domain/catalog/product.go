package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taskprod/backend/internal/domain/shared"
)

// AggregateTypeProduct names the product aggregate in events and decisions
const AggregateTypeProduct = "product"

// Price column is decimal(12,2)
const (
	PriceMaxDigits     = 12
	PriceDecimalPlaces = 2
)

// Product is a sellable item that belongs to exactly one category
type Product struct {
	shared.AuditedAggregateRoot
	CategoryID  uuid.UUID
	Name        string
	Price       decimal.Decimal
	Stock       int
	Description string
	IsActive    bool
	IsDeleted   bool
}

// NewProduct creates an active product created by actorID
func NewProduct(actorID, categoryID uuid.UUID, name string, price decimal.Decimal, stock int, description string) (*Product, error) {
	name = strings.TrimSpace(name)
	verr := &shared.ValidationError{}
	if categoryID == uuid.Nil {
		verr.Add("category", "This field is required")
	}
	collectFieldError(verr, validateName(name))
	collectFieldError(verr, validatePrice(price))
	collectFieldError(verr, validateStock(stock))
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	product := &Product{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(actorID),
		CategoryID:           categoryID,
		Name:                 name,
		Price:                price,
		Stock:                stock,
		Description:          description,
		IsActive:             true,
	}
	product.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeProduct, shared.TransitionCreated, product.ID, actorID))
	return product, nil
}

// Rename changes name and description
func (p *Product) Rename(actorID uuid.UUID, name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.markUpdated(actorID)
	return nil
}

// SetPrice changes the unit price
func (p *Product) SetPrice(actorID uuid.UUID, price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	p.Price = price
	p.markUpdated(actorID)
	return nil
}

// SetStock changes the on-hand quantity
func (p *Product) SetStock(actorID uuid.UUID, stock int) error {
	if err := validateStock(stock); err != nil {
		return err
	}
	p.Stock = stock
	p.markUpdated(actorID)
	return nil
}

// MoveToCategory reassigns the product
func (p *Product) MoveToCategory(actorID, categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return shared.NewValidationError("category", "This field is required")
	}
	p.CategoryID = categoryID
	p.markUpdated(actorID)
	return nil
}

// SetActive toggles the is_active flag
func (p *Product) SetActive(actorID uuid.UUID, active bool) {
	p.IsActive = active
	p.markUpdated(actorID)
}

// SoftDelete hides the product. Returns false when it was already deleted.
func (p *Product) SoftDelete(actorID uuid.UUID) bool {
	if p.IsDeleted {
		return false
	}
	p.IsDeleted = true
	p.IsActive = false
	p.markUpdated(actorID)
	p.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeProduct, shared.TransitionSoftDeleted, p.ID, actorID))
	return true
}

// Restore reverses SoftDelete. Returns false when the product was not deleted.
func (p *Product) Restore(actorID uuid.UUID) bool {
	if !p.IsDeleted {
		return false
	}
	p.IsDeleted = false
	p.IsActive = true
	p.markUpdated(actorID)
	p.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeProduct, shared.TransitionRestored, p.ID, actorID))
	return true
}

// MarkChanged records an update event once all field changes are applied
func (p *Product) MarkChanged(actorID uuid.UUID) {
	p.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeProduct, shared.TransitionUpdated, p.ID, actorID))
}

func (p *Product) markUpdated(actorID uuid.UUID) {
	p.StampUpdatedBy(actorID)
	p.Touch()
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewValidationError("price", "Ensure this value is greater than or equal to 0")
	}
	if price.Exponent() < -PriceDecimalPlaces && !price.Equal(price.Round(PriceDecimalPlaces)) {
		return shared.NewValidationError("price", "Ensure that there are no more than 2 decimal places")
	}
	intDigits := len(price.Truncate(0).Abs().String())
	if intDigits > PriceMaxDigits-PriceDecimalPlaces {
		return shared.NewValidationError("price", "Ensure that there are no more than 10 digits before the decimal point")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return shared.NewValidationError("stock", "Ensure this value is greater than or equal to 0")
	}
	return nil
}

func collectFieldError(verr *shared.ValidationError, err error) {
	if err == nil {
		return
	}
	if fe, ok := err.(*shared.ValidationError); ok {
		verr.Fields = append(verr.Fields, fe.Fields...)
		return
	}
	verr.Add("non_field_errors", err.Error())
}
