package catalog

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
)

// AggregateTypeCategory names the category aggregate in events and decisions
const AggregateTypeCategory = "category"

// MaxNameLength is the longest accepted category or product name
const MaxNameLength = 255

// Category is a node of the catalog tree. ParentID nil marks a root.
type Category struct {
	shared.AuditedAggregateRoot
	Name        string
	Description string
	ParentID    *uuid.UUID
	IsActive    bool
	IsDeleted   bool
}

// NewCategory creates an active category created by actorID
func NewCategory(actorID uuid.UUID, name, description string, parentID *uuid.UUID) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	category := &Category{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(actorID),
		Name:                 name,
		Description:          description,
		IsActive:             true,
	}
	if err := category.SetParent(parentID); err != nil {
		return nil, err
	}

	category.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeCategory, shared.TransitionCreated, category.ID, actorID))
	return category, nil
}

// Update changes name and description
func (c *Category) Update(actorID uuid.UUID, name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	c.Name = name
	c.Description = description
	c.markUpdated(actorID)
	return nil
}

// SetParent moves the category under parentID, nil makes it a root.
// Only the direct self-reference is checked here; deeper cycles need the
// tree and are rejected by CheckAncestry when the move is stored.
func (c *Category) SetParent(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == c.ID {
		return shared.NewValidationError("parent", "A category cannot be its own parent")
	}
	c.ParentID = parentID
	return nil
}

// SetActive toggles the is_active flag
func (c *Category) SetActive(actorID uuid.UUID, active bool) {
	c.IsActive = active
	c.markUpdated(actorID)
}

// SoftDelete hides the category. Returns false when it was already deleted.
func (c *Category) SoftDelete(actorID uuid.UUID) bool {
	if c.IsDeleted {
		return false
	}
	c.IsDeleted = true
	c.IsActive = false
	c.markUpdated(actorID)
	c.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeCategory, shared.TransitionSoftDeleted, c.ID, actorID))
	return true
}

// Restore reverses SoftDelete. Returns false when the category was not deleted.
func (c *Category) Restore(actorID uuid.UUID) bool {
	if !c.IsDeleted {
		return false
	}
	c.IsDeleted = false
	c.IsActive = true
	c.markUpdated(actorID)
	c.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeCategory, shared.TransitionRestored, c.ID, actorID))
	return true
}

// ParentLookup returns the parent of a category, nil for a root
type ParentLookup func(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)

// CheckAncestry walks up from parentID and fails when it reaches id, which
// means moving id under parentID would close a loop. A missing ancestor or
// a loop already present above parentID ends the walk.
func CheckAncestry(ctx context.Context, id, parentID uuid.UUID, parentOf ParentLookup) error {
	visited := make(map[uuid.UUID]bool)
	current := &parentID
	for current != nil {
		if *current == id {
			return shared.NewValidationError("parent", "A category cannot be moved under itself or its descendants")
		}
		if visited[*current] {
			return nil
		}
		visited[*current] = true

		next, err := parentOf(ctx, *current)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		current = next
	}
	return nil
}

// IsRoot returns true if the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

func (c *Category) markUpdated(actorID uuid.UUID) {
	c.StampUpdatedBy(actorID)
	c.Touch()
}

// MarkChanged records an update event once all field changes are applied
func (c *Category) MarkChanged(actorID uuid.UUID) {
	c.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeCategory, shared.TransitionUpdated, c.ID, actorID))
}

func validateName(name string) error {
	if name == "" {
		return shared.NewValidationError("name", "This field may not be blank")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return shared.NewValidationError("name", "Ensure this field has no more than 255 characters")
	}
	return nil
}
