package order

import "github.com/shopspring/decimal"

// ItemType is one of the fixed dumpling kinds that can be ordered.
type ItemType string

type CatalogEntry struct {
	Type  ItemType
	Price int64
}

// Catalog maps item types to unit prices. It is never mutated after construction.
type Catalog struct {
	entries []CatalogEntry
	prices  map[ItemType]int64
}

func NewCatalog(entries ...CatalogEntry) *Catalog {
	c := &Catalog{prices: make(map[ItemType]int64, len(entries))}
	for _, e := range entries {
		if _, dup := c.prices[e.Type]; dup {
			continue
		}
		c.entries = append(c.entries, e)
		c.prices[e.Type] = e.Price
	}
	return c
}

// DefaultCatalog is the menu the bot ships with.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		CatalogEntry{Type: "ВК", Price: 50},
		CatalogEntry{Type: "ВБ", Price: 50},
		CatalogEntry{Type: "ЖК", Price: 55},
		CatalogEntry{Type: "ЖБ", Price: 55},
	)
}

// Steps are the quantity deltas offered by the order keyboards.
var Steps = []int{-4, -2, -1, 1, 2, 4}

func (c *Catalog) Types() []ItemType {
	out := make([]ItemType, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Type)
	}
	return out
}

func (c *Catalog) Has(t ItemType) bool {
	_, ok := c.prices[t]
	return ok
}

// Price returns the unit price as a decimal; unknown types cost nothing.
func (c *Catalog) Price(t ItemType) decimal.Decimal {
	return decimal.NewFromInt(c.prices[t])
}
