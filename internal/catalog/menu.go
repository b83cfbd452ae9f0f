package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Item is the read-only view of an orderable product.
type Item struct {
	ID              uint64
	Name            string
	Description     string
	Price           decimal.Decimal
	Category        enums.ProductCategory
	PreparationTime time.Duration
}

// ItemFromModel converts a persisted product.
func ItemFromModel(p models.Product) Item {
	prep := time.Duration(p.PreparationTime) * time.Minute
	if prep <= 0 {
		prep = DefaultPreparationTime
	}
	return Item{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		Category:        p.Category,
		PreparationTime: prep,
	}
}

// DefaultPreparationTime applies when a product has no explicit value.
const DefaultPreparationTime = 30 * time.Minute

// Menu is an immutable snapshot of the available catalog.
type Menu struct {
	items []Item
	byID  map[uint64]Item
}

// NewMenu orders items by category rank, then id.
func NewMenu(items []Item) Menu {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Category.Rank(), sorted[j].Category.Rank()
		if ri != rj {
			return ri < rj
		}
		if ri == len(enums.MenuCategoryOrder()) && sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].ID < sorted[j].ID
	})
	byID := make(map[uint64]Item, len(sorted))
	for _, item := range sorted {
		byID[item.ID] = item
	}
	return Menu{items: sorted, byID: byID}
}

// Lookup finds an available item by id.
func (m Menu) Lookup(id uint64) (Item, bool) {
	item, ok := m.byID[id]
	return item, ok
}

// Items returns the ordered items.
func (m Menu) Items() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Empty reports whether nothing is orderable.
func (m Menu) Empty() bool {
	return len(m.items) == 0
}

// ByCategory returns the items of one category in menu order.
func (m Menu) ByCategory(category enums.ProductCategory) []Item {
	var out []Item
	for _, item := range m.items {
		if strings.EqualFold(string(item.Category), string(category)) {
			out = append(out, item)
		}
	}
	return out
}

// Format renders the grouped menu, one "{id}. {name} - {price} {currency}"
// line per item.
func (m Menu) Format(currency string) string {
	if m.Empty() {
		return "Our menu is being updated. Please check back shortly.\n"
	}
	var b strings.Builder
	var current enums.ProductCategory
	for i, item := range m.items {
		if i == 0 || item.Category != current {
			if i > 0 {
				b.WriteString("\n")
			}
			current = item.Category
			heading := string(item.Category)
			if emoji := item.Category.Emoji(); emoji != "" {
				heading = emoji + " " + heading
			}
			b.WriteString(heading + ":\n")
		}
		fmt.Fprintf(&b, "%d. %s - %s %s\n", item.ID, item.Name, FormatAmount(item.Price), currency)
	}
	return b.String()
}

// FormatAmount renders a money value with two decimals and thousands
// separators, e.g. 25,000.00.
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + grouped.String() + "." + frac
}
