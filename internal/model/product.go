package model

import "time"

// ProductSpecs holds the specifications derived from a catalog product.
// Which fields are set depends on the product type.
type ProductSpecs struct {
	Name        string `json:"name"`
	ProductType string `json:"product_type"`

	// Area in square centimetres, front and rear wings.
	Area int `json:"area,omitempty"`

	// Series such as "ART" or "Spitfire", front wings only.
	Series string `json:"series,omitempty"`

	// Style such as "Progressive", rear wings only.
	Style string `json:"style,omitempty"`

	// LengthCM and Material, masts only.
	LengthCM int    `json:"length_cm,omitempty"`
	Material string `json:"material,omitempty"`

	// AspectRatio and Wingspan are merged from the specification table.
	AspectRatio float64 `json:"aspectRatio,omitempty"` //nolint:tagliatelle // consumed downstream under this name
	Wingspan    int     `json:"wingspan,omitempty"`
}

// ProductRecord is a cleaned catalog product.
type ProductRecord struct {
	ID          int64        `json:"id"`
	Handle      string       `json:"handle"`
	Title       string       `json:"title"`
	ProductType string       `json:"product_type"`
	Vendor      string       `json:"vendor"`
	Description string       `json:"description"`
	Image       string       `json:"image,omitempty"`
	Price       string       `json:"price,omitempty"`
	Available   bool         `json:"available"`
	URL         string       `json:"url"`
	Specs       ProductSpecs `json:"specs"`
	Tags        []string     `json:"tags"`
	CreatedAt   string       `json:"created_at,omitempty"`
	UpdatedAt   string       `json:"updated_at,omitempty"`
}

// CollectionData is one catalog collection.
type CollectionData struct {
	Name     string          `json:"name"`
	Count    int             `json:"count"`
	Products []ProductRecord `json:"products"`
}

// CatalogMeta describes a catalog snapshot.
type CatalogMeta struct {
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source"`
	Version    string    `json:"version"`
}

// Catalog is a snapshot of the vendor catalog keyed by collection handle.
type Catalog struct {
	Meta        CatalogMeta               `json:"meta"`
	Collections map[string]CollectionData `json:"collections"`
}

// TotalProducts returns the number of products across all collections.
func (c *Catalog) TotalProducts() int {
	total := 0
	for _, col := range c.Collections {
		total += col.Count
	}
	return total
}

// SpecRecord is an entry of the static specification table.
type SpecRecord struct {
	Key         string  `json:"key"`
	AspectRatio float64 `json:"aspect_ratio"`
	Wingspan    int     `json:"wingspan"`
}
