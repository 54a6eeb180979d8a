package search

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultBaseURL = "https://www.vivareal.com.br"

type ListingType string

const (
	ListingSale   ListingType = "sale"
	ListingRent   ListingType = "rent"
	ListingLaunch ListingType = "launch"
)

var listingTypeSlugs = map[ListingType]string{
	ListingSale:   "venda",
	ListingRent:   "aluguel",
	ListingLaunch: "imoveis-lancamento",
}

type SortKey string

const (
	SortPriceAsc       SortKey = "price_asc"
	SortPriceDesc      SortKey = "price_desc"
	SortTotalPriceAsc  SortKey = "total_price_asc"
	SortTotalPriceDesc SortKey = "total_price_desc"
)

var sortSlugs = map[SortKey]string{
	SortPriceAsc:       "preco:ASC",
	SortPriceDesc:      "preco:DESC",
	SortTotalPriceAsc:  "preco-total:ASC",
	SortTotalPriceDesc: "preco-total:DESC",
}

type PropertyType string

const (
	PropertyHouse       PropertyType = "house"
	PropertyApartment   PropertyType = "apartment"
	PropertyCondominium PropertyType = "condominium"
	PropertyTownhouse   PropertyType = "townhouse"
	PropertyFarm        PropertyType = "farm"
	PropertyKitnet      PropertyType = "kitnet"
	PropertyFlat        PropertyType = "flat"
	PropertyPenthouse   PropertyType = "penthouse"
)

var propertyTypeSlugs = map[PropertyType]string{
	PropertyHouse:       "casa_residencial",
	PropertyApartment:   "apartamento_residencial",
	PropertyCondominium: "condominio_residencial",
	PropertyTownhouse:   "sobrado_residencial",
	PropertyFarm:        "granja_comercial",
	PropertyKitnet:      "kitnet_residencial",
	PropertyFlat:        "flat_residencial",
	PropertyPenthouse:   "cobertura_residencial",
}

// Filter narrows the search-results listing. Location fields form a chain:
// state needs a listing type, country needs a state, region needs a country.
type Filter struct {
	BaseURL       string         `yaml:"base_url"`
	ListingType   ListingType    `yaml:"listing_type"`
	State         string         `yaml:"state"`
	Country       string         `yaml:"country"`
	Region        string         `yaml:"region"`
	Rooms         int            `yaml:"rooms"`
	MinPrice      int            `yaml:"min_price"`
	MaxPrice      int            `yaml:"max_price"`
	Sort          SortKey        `yaml:"sort"`
	PropertyTypes []PropertyType `yaml:"property_types"`
}

// DefaultFilter returns the filter used when the search file leaves fields out.
func DefaultFilter() Filter {
	return Filter{
		BaseURL:       DefaultBaseURL,
		ListingType:   ListingRent,
		Sort:          SortTotalPriceAsc,
		PropertyTypes: []PropertyType{PropertyHouse},
	}
}

// Validate reports the first filter value that would produce a malformed URL.
func (f *Filter) Validate() error {
	if f.BaseURL == "" {
		return fmt.Errorf("base_url is empty")
	}
	if f.ListingType != "" {
		if _, ok := listingTypeSlugs[f.ListingType]; !ok {
			return fmt.Errorf("unknown listing_type %q (want one of %s)", f.ListingType, keys(listingTypeSlugs))
		}
	}
	if f.Sort != "" {
		if _, ok := sortSlugs[f.Sort]; !ok {
			return fmt.Errorf("unknown sort %q (want one of %s)", f.Sort, keys(sortSlugs))
		}
	}
	for _, pt := range f.PropertyTypes {
		if _, ok := propertyTypeSlugs[pt]; !ok {
			return fmt.Errorf("unknown property type %q (want one of %s)", pt, keys(propertyTypeSlugs))
		}
	}
	if f.Rooms < 0 {
		return fmt.Errorf("rooms must not be negative, got %d", f.Rooms)
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 {
		return fmt.Errorf("prices must not be negative, got min=%d max=%d", f.MinPrice, f.MaxPrice)
	}
	if f.MinPrice > 0 && f.MaxPrice > 0 && f.MaxPrice < f.MinPrice {
		return fmt.Errorf("max_price %d is below min_price %d", f.MaxPrice, f.MinPrice)
	}
	return nil
}

func keys[K ~string, V any](m map[K]V) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
