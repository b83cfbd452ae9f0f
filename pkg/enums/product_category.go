package enums

import "strings"

// ProductCategory groups menu items.
type ProductCategory string

const (
	ProductCategoryPizza   ProductCategory = "Pizza"
	ProductCategorySides   ProductCategory = "Sides"
	ProductCategoryDrinks  ProductCategory = "Drinks"
	ProductCategoryDessert ProductCategory = "Desserts"
)

var menuCategoryOrder = []ProductCategory{
	ProductCategoryPizza,
	ProductCategoryDrinks,
	ProductCategoryDessert,
	ProductCategorySides,
}

var categoryEmoji = map[ProductCategory]string{
	ProductCategoryPizza:   "🍕",
	ProductCategorySides:   "🍟",
	ProductCategoryDrinks:  "🥤",
	ProductCategoryDessert: "🍰",
}

// MenuCategoryOrder returns the fixed order categories are listed in.
func MenuCategoryOrder() []ProductCategory {
	out := make([]ProductCategory, len(menuCategoryOrder))
	copy(out, menuCategoryOrder)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// Emoji returns the heading icon for the category, empty for unknown ones.
func (c ProductCategory) Emoji() string {
	return categoryEmoji[c]
}

// Rank orders known categories first, unknown ones after.
func (c ProductCategory) Rank() int {
	for i, candidate := range menuCategoryOrder {
		if strings.EqualFold(string(candidate), string(c)) {
			return i
		}
	}
	return len(menuCategoryOrder)
}
