package services

import (
	"context"
	"errors"
	"fmt"

	"salgados/docstore"
	"salgados/models"

	"github.com/shopspring/decimal"
)

const cartsCollection = "carts"

var (
	ErrItemUnavailable = errors.New("item is not available")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrBoxSelection    = errors.New("box selection is incomplete")
	ErrLineNotFound    = errors.New("cart line not found")
)

// BoxUnitPrice is the frozen price of one customised box: the catalog price
// while the selection stays within the box minimum, the sum of the selected
// component prices once the customer picks more than the minimum.
func BoxUnitPrice(item models.MenuItem, selection []models.CustomizationItem) decimal.Decimal {
	count := 0
	sum := decimal.Zero
	for _, c := range selection {
		count += c.Quantity
		sum = sum.Add(c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	if count <= item.BoxMinSize {
		return item.Price
	}
	return sum
}

// boxSelection checks a customization against the box definition and fills
// component prices from the catalog.
func boxSelection(item models.MenuItem, selection []models.CustomizationItem) ([]models.CustomizationItem, error) {
	prices := make(map[string]decimal.Decimal, len(item.BoxComponents))
	for _, c := range item.BoxComponents {
		prices[c.Name] = c.Price
	}
	out := make([]models.CustomizationItem, 0, len(selection))
	count := 0
	for _, c := range selection {
		if c.Quantity <= 0 {
			continue
		}
		price, ok := prices[c.ComponentName]
		if !ok {
			return nil, fmt.Errorf("%w: unknown component %q", ErrBoxSelection, c.ComponentName)
		}
		count += c.Quantity
		out = append(out, models.CustomizationItem{ComponentName: c.ComponentName, Quantity: c.Quantity, UnitPrice: price})
	}
	if count < item.BoxMinSize {
		return nil, fmt.Errorf("%w: choose at least %d items, got %d", ErrBoxSelection, item.BoxMinSize, count)
	}
	return out, nil
}

// AddToCart returns lines with qty of item added. Box lines are priced once
// here and never re-priced; a line equal to an existing one (same item, same
// customization in order) is merged into it.
func AddToCart(lines []models.CartLine, item models.MenuItem, qty int, customization []models.CustomizationItem) ([]models.CartLine, error) {
	if !item.Available {
		return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	line := models.CartLine{
		ItemID:             item.ID,
		Name:               item.Name,
		UnitPrice:          item.Price,
		Quantity:           qty,
		RequiresScheduling: item.RequiresScheduling,
	}
	if item.IsBox {
		sel, err := boxSelection(item, customization)
		if err != nil {
			return nil, err
		}
		line.Customization = sel
		line.UnitPrice = BoxUnitPrice(item, sel)
	}

	out := make([]models.CartLine, len(lines), len(lines)+1)
	copy(out, lines)
	for i := range out {
		if out[i].SameLine(line) {
			out[i].Quantity += qty
			return out, nil
		}
	}
	return append(out, line), nil
}

// SetLineQuantity changes the quantity of line i; zero removes it.
func SetLineQuantity(lines []models.CartLine, i, qty int) ([]models.CartLine, error) {
	if i < 0 || i >= len(lines) {
		return nil, ErrLineNotFound
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	if qty == 0 {
		return RemoveLine(lines, i)
	}
	out := append([]models.CartLine(nil), lines...)
	out[i].Quantity = qty
	return out, nil
}

func RemoveLine(lines []models.CartLine, i int) ([]models.CartLine, error) {
	if i < 0 || i >= len(lines) {
		return nil, ErrLineNotFound
	}
	out := make([]models.CartLine, 0, len(lines)-1)
	out = append(out, lines[:i]...)
	return append(out, lines[i+1:]...), nil
}

// UnitCount is the number of units across all lines.
func UnitCount(lines []models.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Subtotal sums unit price × quantity. Box lines count their frozen price,
// not their components.
func Subtotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// CartRepo keeps one cart document per user.
type CartRepo struct {
	store *docstore.Store
}

func NewCartRepo(store *docstore.Store) *CartRepo {
	return &CartRepo{store: store}
}

// Get returns the user's cart, empty when none was saved yet.
func (r *CartRepo) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	err := r.store.Get(ctx, cartsCollection, userID, &c)
	if errors.Is(err, docstore.ErrNotFound) {
		return &models.Cart{UserID: userID, Lines: []models.CartLine{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c.UserID = userID
	return &c, nil
}

func (r *CartRepo) Save(ctx context.Context, cart *models.Cart) error {
	if err := r.store.Set(ctx, cartsCollection, cart.UserID, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *CartRepo) Delete(ctx context.Context, userID string) error {
	err := r.store.Delete(ctx, cartsCollection, userID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
