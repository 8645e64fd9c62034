package services

import (
	"context"
	"fmt"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/storage"
)

type CategoryService struct {
	store  storage.Store
	events notifier
}

func NewCategoryService(store storage.Store, events EventPublisher, opts ...Option) *CategoryService {
	o := buildOptions(log.ComponentCategory, opts)
	return &CategoryService{
		store:  store,
		events: notifier{events: events, logger: o.logger},
	}
}

// List returns the categories by name, seeding the defaults into an empty store.
func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	out, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = 0
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.changed(ctx, created.ID, created.Name)
	return created, nil
}

// Update renames or restyles a category. Expenses keep the category name they
// were stored with.
func (s *CategoryService) Update(ctx context.Context, id int64, patch core.CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		cur, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		next := patch.Apply(cur)
		next.Normalize()
		if err := next.Validate(); err != nil {
			return err
		}
		updated, err = tx.UpdateCategory(ctx, next)
		return err
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	s.changed(ctx, updated.ID, updated.Name)
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.changed(ctx, id, "")
	return nil
}

func (s *CategoryService) changed(ctx context.Context, id int64, name string) {
	ev := amqp.NewChangeEvent(amqp.EventCategoryChanged)
	ev.ID, ev.Name = id, name
	s.events.notify(ctx, ev)
}
