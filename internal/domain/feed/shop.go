package feed

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Field limits of the format
const (
	MaxItemIDLength      = 36
	MaxProductNameLength = 200
	MaxURLLength         = 300
	MaxImageURLLength    = 255
	MaxSpecialServices   = 5
)

var disallowedIDChars = regexp.MustCompile(`[^_\-0-9a-zA-Z]`)

// SanitizeID maps a remote id onto the ITEM_ID alphabet and length
func SanitizeID(id string) string {
	s := disallowedIDChars.ReplaceAllString(id, "_")
	if len(s) > MaxItemIDLength {
		s = s[:MaxItemIDLength]
	}
	return s
}

// Text is free text written as a CDATA section
type Text string

// MarshalXML implements xml.Marshaler
func (t Text) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(struct {
		Value string `xml:",cdata"`
	}{CleanText(string(t))}, start)
}

// CleanText replaces invalid UTF-8 with U+FFFD and removes runes outside
// the XML Char production, which no XML document may contain.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return -1
	}, s)
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// Shop is the feed document root
type Shop struct {
	XMLName xml.Name   `xml:"SHOP"`
	Items   []ShopItem `xml:"SHOPITEM" validate:"dive"`
}

// ShopItem is one sellable item. Field order is the element order of the
// format and must not change.
type ShopItem struct {
	ItemID            string            `xml:"ITEM_ID" validate:"required,max=36,itemid"`
	ProductName       Text              `xml:"PRODUCTNAME" validate:"required,max=200"`
	Product           Text              `xml:"PRODUCT,omitempty" validate:"omitempty,max=200"`
	Description       Text              `xml:"DESCRIPTION,omitempty"`
	URL               string            `xml:"URL,omitempty" validate:"omitempty,max=300,url"`
	ImgURL            string            `xml:"IMGURL" validate:"required,max=255,url"`
	ImgURLAlternative []string          `xml:"IMGURL_ALTERNATIVE" validate:"dive,max=255,url"`
	VideoURL          string            `xml:"VIDEO_URL,omitempty" validate:"omitempty,url"`
	PriceVAT          decimal.Decimal   `xml:"PRICE_VAT" validate:"gte=0"`
	VAT               string            `xml:"VAT,omitempty" validate:"omitempty,vat"`
	ItemType          string            `xml:"ITEM_TYPE,omitempty"`
	Params            []Param           `xml:"PARAM" validate:"dive"`
	Manufacturer      Text              `xml:"MANUFACTURER,omitempty"`
	CategoryText      Text              `xml:"CATEGORYTEXT" validate:"required"`
	EAN               string            `xml:"EAN,omitempty"`
	ISBN              string            `xml:"ISBN,omitempty"`
	HeurekaCPC        *decimal.Decimal  `xml:"HEUREKA_CPC,omitempty" validate:"omitempty,gte=0"`
	DeliveryDate      string            `xml:"DELIVERY_DATE,omitempty"`
	ProductNo         string            `xml:"PRODUCTNO,omitempty"`
	Deliveries        []Delivery        `xml:"DELIVERY" validate:"dive"`
	ItemGroupID       string            `xml:"ITEMGROUP_ID,omitempty" validate:"omitempty,max=36,itemid"`
	Accessories       []string          `xml:"ACCESSORY" validate:"dive,itemid"`
	Dues              *decimal.Decimal  `xml:"DUES,omitempty" validate:"omitempty,gte=0"`
	Gift              Text              `xml:"GIFT,omitempty"`
	GiftID            string            `xml:"GIFT_ID,omitempty"`
	ExtendedWarranty  *ExtendedWarranty `xml:"EXTENDED_WARRANTY,omitempty"`
	SpecialServices   []Text            `xml:"SPECIAL_SERVICE" validate:"max=5"`
}

// Param is a named product parameter
type Param struct {
	Name  Text `xml:"PARAM_NAME" validate:"required"`
	Value Text `xml:"VAL" validate:"required"`
}

// Delivery is one shipping option for an item; prices include VAT
type Delivery struct {
	ID       CourierID        `xml:"DELIVERY_ID" validate:"required,courier"`
	Price    decimal.Decimal  `xml:"DELIVERY_PRICE" validate:"gte=0"`
	PriceCOD *decimal.Decimal `xml:"DELIVERY_PRICE_COD,omitempty" validate:"omitempty,gte=0"`
}

// ExtendedWarranty in months; above 999 means lifetime
type ExtendedWarranty struct {
	Months      int  `xml:"VAL" validate:"gte=0"`
	Description Text `xml:"DESC"`
}

// NewShop creates a document from items
func NewShop(items []ShopItem) *Shop {
	if items == nil {
		items = []ShopItem{}
	}
	return &Shop{Items: items}
}

// Marshal serializes the document with an XML declaration and four space indentation
func (s *Shop) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("feed: marshal document: %w", err)
	}
	doc := make([]byte, 0, len(xml.Header)+len(body)+1)
	doc = append(doc, xml.Header...)
	doc = append(doc, body...)
	doc = append(doc, '\n')
	return doc, nil
}

// Unmarshal parses a serialized document
func Unmarshal(doc []byte) (*Shop, error) {
	var s Shop
	if err := xml.Unmarshal(doc, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
