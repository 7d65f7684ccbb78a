package catalog

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/foilscan/internal/model"
)

// DefaultVendor is used when a product has no vendor.
const DefaultVendor = "AXIS"

type productsPage struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Handle      string           `json:"handle"`
	Title       string           `json:"title"`
	ProductType string           `json:"product_type"`
	Vendor      string           `json:"vendor"`
	BodyHTML    string           `json:"body_html"`
	Images      []shopifyImage   `json:"images"`
	Variants    []shopifyVariant `json:"variants"`
	Tags        tags             `json:"tags"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyVariant struct {
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// tags accepts both the array form and the older comma-separated string.
type tags []string

func (t *tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	out := make([]string, 0)
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	*t = out
	return nil
}

// cleanProduct converts a storefront product into a record.
func cleanProduct(p shopifyProduct, col Collection, baseURL string) model.ProductRecord {
	productType := p.ProductType
	if productType == "" {
		productType = col.Name
	}
	vendor := p.Vendor
	if vendor == "" {
		vendor = DefaultVendor
	}

	rec := model.ProductRecord{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		ProductType: productType,
		Vendor:      vendor,
		Description: htmlText(p.BodyHTML),
		URL:         strings.TrimRight(baseURL, "/") + "/products/" + p.Handle,
		Specs:       ExtractSpecs(p.Title, col.Handle, productType),
		Tags:        []string(p.Tags),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if rec.Tags == nil {
		rec.Tags = make([]string, 0)
	}
	if len(p.Images) > 0 {
		rec.Image = p.Images[0].Src
	}
	if len(p.Variants) > 0 {
		rec.Price = p.Variants[0].Price
		rec.Available = p.Variants[0].Available
	}
	return rec
}

// htmlText flattens an HTML fragment to whitespace-normalised text.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	for _, n := range doc.Find("br, p, li, div, h1, h2, h3, h4").Nodes {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: " "})
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
