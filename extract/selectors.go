package extract

// Results page.
const (
	SelResultsList = "div.results-list"
	SelListingLink = "article.property-card__container a.property-card__content-link"
	SelPageButton  = "button.js-change-page"
)

// Detail page.
const (
	SelTitle           = "h1.description__title"
	SelPrice           = "p.price-info-value"
	SelAdditionalPrice = "p.additional-price-info--value"
	SelAddress         = "p.address-info-value"
	SelAmenity         = "p.amenities-item"
	SelBusinessType    = ".price-value-wrapper p#business-type-info"
	SelDescription     = "div.desktop-only-container .description__content--text"
	SelPublishedAt     = "div.desktop-only-container span.description__created-at"
	SelImage           = "li.carousel-photos--item img"
)

// Contact form on the detail page.
const (
	SelContactForm   = ".base-page__main-content__right .lead-message-form"
	SelContactSubmit = ".base-page__main-content__right .lead-message-form button"
	SelContactModal  = ".lead-modal__message"
)
