// Package catalog holds the fixed set of credit packages that can be purchased.
package catalog

import "sort"

// Package is one purchasable credit bundle. Price is in the currency's minor units.
type Package struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Credits     int64  `json:"credits"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

const (
	StarterPackID = "starter"
	ProPackID     = "pro"
	PremiumPackID = "premium"
)

// Catalog is an immutable product table.
type Catalog struct {
	packages map[string]Package
}

func New(packages ...Package) *Catalog {
	c := &Catalog{packages: make(map[string]Package, len(packages))}
	for _, p := range packages {
		c.packages[p.ID] = p
	}
	return c
}

// Default returns the built-in packages. Pro and premium pricing is provisional.
func Default() *Catalog {
	return New(
		Package{
			ID:          StarterPackID,
			Name:        "Starter Pack",
			Credits:     20,
			Price:       20,
			Currency:    "USD",
			Description: "20 image generations",
		},
		Package{
			ID:          ProPackID,
			Name:        "Pro Pack",
			Credits:     100,
			Price:       80,
			Currency:    "USD",
			Description: "100 image generations",
		},
		Package{
			ID:          PremiumPackID,
			Name:        "Premium Pack",
			Credits:     500,
			Price:       300,
			Currency:    "USD",
			Description: "500 image generations",
		},
	)
}

func (c *Catalog) Lookup(productID string) (Package, bool) {
	p, ok := c.packages[productID]
	return p, ok
}

// All returns every package ordered by price.
func (c *Catalog) All() []Package {
	out := make([]Package, 0, len(c.packages))
	for _, p := range c.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price == out[j].Price {
			return out[i].ID < out[j].ID
		}
		return out[i].Price < out[j].Price
	})
	return out
}
