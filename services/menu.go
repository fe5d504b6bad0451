package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"salgados/docstore"
	"salgados/models"
)

const menuCollection = "menu"

// ValidateMenuItem checks an admin-submitted item before it is stored.
func ValidateMenuItem(item *models.MenuItem) error {
	if !slices.Contains(models.MenuCategories, item.Category) {
		return fmt.Errorf("invalid category: %s", item.Category)
	}
	if item.Name == "" {
		return fmt.Errorf("name is required")
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("price must be >= 0")
	}
	if !item.IsBox {
		return nil
	}
	if item.BoxMinSize <= 0 {
		return fmt.Errorf("box minimum size must be positive")
	}
	if len(item.BoxComponents) == 0 {
		return fmt.Errorf("box needs at least one component")
	}
	seen := make(map[string]bool, len(item.BoxComponents))
	for _, c := range item.BoxComponents {
		if c.Name == "" || c.Price.IsNegative() {
			return fmt.Errorf("box component %q: name and non-negative price required", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("box component %q listed twice", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

type MenuRepo struct {
	store *docstore.Store
}

func NewMenuRepo(store *docstore.Store) *MenuRepo {
	return &MenuRepo{store: store}
}

// List returns the whole catalog grouped by category, then by name.
func (r *MenuRepo) List(ctx context.Context) ([]models.MenuItem, error) {
	docs, err := r.store.List(ctx, menuCollection)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	items := make([]models.MenuItem, 0, len(docs))
	for _, d := range docs {
		var item models.MenuItem
		if err := json.Unmarshal(d.Data, &item); err != nil {
			return nil, fmt.Errorf("decode menu/%s: %w", d.ID, err)
		}
		item.ID = d.ID
		items = append(items, item)
	}
	order := make(map[string]int, len(models.MenuCategories))
	for i, c := range models.MenuCategories {
		order[c] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return order[items[i].Category] < order[items[j].Category]
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// ListByCategory returns the items of one category.
func (r *MenuRepo) ListByCategory(ctx context.Context, category string) ([]models.MenuItem, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var items []models.MenuItem
	for _, item := range all {
		if item.Category == category {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *MenuRepo) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.store.Get(ctx, menuCollection, id, &item); err != nil {
		return nil, fmt.Errorf("menu item %s: %w", id, err)
	}
	item.ID = id
	return &item, nil
}

// Add stores a new item and returns its id.
func (r *MenuRepo) Add(ctx context.Context, item models.MenuItem) (string, error) {
	if err := ValidateMenuItem(&item); err != nil {
		return "", invalidErr(err)
	}
	item.ID = ""
	id, err := r.store.Create(ctx, menuCollection, item)
	if err != nil {
		return "", fmt.Errorf("add menu item: %w", err)
	}
	return id, nil
}

// Update replaces an existing item. Lines already in carts keep their
// frozen prices.
func (r *MenuRepo) Update(ctx context.Context, item models.MenuItem) error {
	if err := ValidateMenuItem(&item); err != nil {
		return invalidErr(err)
	}
	if _, err := r.Get(ctx, item.ID); err != nil {
		return err
	}
	id := item.ID
	item.ID = ""
	if err := r.store.Set(ctx, menuCollection, id, item); err != nil {
		return fmt.Errorf("update menu item %s: %w", id, err)
	}
	return nil
}

func (r *MenuRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, menuCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("menu item %s: %w", id, err)
		}
		return fmt.Errorf("delete menu item %s: %w", id, err)
	}
	return nil
}
