package feed

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feed"
)

var (
	ErrMissingImage = errors.New("feed: variant has no image")
	ErrMissingPrice = errors.New("feed: variant has no price")
	ErrVariantURL   = errors.New("feed: variant url could not be rendered")
)

// URLData is the value the variant URL template is executed with
type URLData struct {
	Product  catalog.Product
	Variant  catalog.Variant
	Category catalog.Category
}

// ItemInput is everything needed to assemble one feed item
type ItemInput struct {
	Product      catalog.Product
	Variant      catalog.Variant
	Category     catalog.Category
	CategoryText string
	Deliveries   []feed.Delivery
}

// Builder assembles feed items
type Builder struct {
	urlTemplate *template.Template
	taxRate     string
}

// NewBuilder parses the variant URL template. Unknown keys fail rendering.
func NewBuilder(variantURLTemplate, taxRate string) (*Builder, error) {
	tmpl, err := template.New("variant_url").Option("missingkey=error").Parse(variantURLTemplate)
	if err != nil {
		return nil, fmt.Errorf("feed: parse variant url template: %w", err)
	}
	return &Builder{urlTemplate: tmpl, taxRate: strings.TrimSpace(taxRate)}, nil
}

// VariantURL renders the template and requires an absolute http(s) URL
func (b *Builder) VariantURL(data URLData) (string, error) {
	var buf bytes.Buffer
	if err := b.urlTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVariantURL, err)
	}
	raw := strings.TrimSpace(buf.String())
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVariantURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrVariantURL, raw)
	}
	return u.String(), nil
}

// Build assembles the item of one variant
func (b *Builder) Build(in ItemInput) (feed.ShopItem, error) {
	v, p := in.Variant, in.Product

	if len(v.Media) == 0 {
		return feed.ShopItem{}, fmt.Errorf("%w: %s", ErrMissingImage, v.ID)
	}
	if v.Price == nil {
		return feed.ShopItem{}, fmt.Errorf("%w: %s", ErrMissingPrice, v.ID)
	}
	link, err := b.VariantURL(URLData{Product: p, Variant: v, Category: in.Category})
	if err != nil {
		return feed.ShopItem{}, err
	}

	name := strings.TrimSpace(feed.CleanText(v.Name))
	if name == "" {
		name = feed.CleanText(p.Name)
	}

	item := feed.ShopItem{
		ItemID:       feed.SanitizeID(v.ID),
		ProductName:  feed.Text(truncate(name, feed.MaxProductNameLength)),
		Product:      feed.Text(truncate(feed.CleanText(p.Name), feed.MaxProductNameLength)),
		Description:  feed.Text(feed.CleanText(p.PlainDescription())),
		URL:          link,
		ImgURL:       v.Media[0].URL,
		PriceVAT:     v.Price.Amount.Round(2),
		VAT:          b.taxRate,
		CategoryText: feed.Text(feed.CleanText(in.CategoryText)),
		ProductNo:    v.SKU,
		Deliveries:   in.Deliveries,
		ItemGroupID:  feed.SanitizeID(p.ID),
	}
	for _, m := range v.Media[1:] {
		item.ImgURLAlternative = append(item.ImgURLAlternative, m.URL)
	}
	return item, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
