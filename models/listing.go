package models

import "time"

// Undefined is stored in scalar fields whose selector matched nothing.
const Undefined = "undefined"

// Listing is one property entry scraped from a detail page.
type Listing struct {
	ID              int64      `json:"id" db:"id"`
	URL             string     `json:"url" db:"url"`
	Title           string     `json:"title" db:"title"`
	Price           string     `json:"price" db:"price"`
	AdditionalPrice []string   `json:"additional_price" db:"additional_price"`
	Address         string     `json:"address" db:"address"`
	Properties      []string   `json:"properties" db:"properties"`
	ListingType     string     `json:"listing_type" db:"listing_type"`
	Images          []string   `json:"images" db:"images"`
	Description     string     `json:"description" db:"description"`
	PublishedAt     string     `json:"published_at" db:"published_at"`
	Contacts        []string   `json:"contacts" db:"contacts"`
	Transport       *Transport `json:"transport,omitempty" db:"-"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Transport describes the HTTP exchange that produced a page.
type Transport struct {
	StatusCode int    `json:"status_code" db:"status_code"`
	Reason     string `json:"reason" db:"reason"`
	ClientIP   string `json:"client_ip" db:"client_ip"`
	ServerIP   string `json:"server_ip" db:"server_ip"`
}

// PageResult is one fetched search-results page.
type PageResult struct {
	URL         string    `json:"url"`
	Page        int       `json:"page"`
	Transport   Transport `json:"transport"`
	HTML        string    `json:"-"`
	ListingURLs []string  `json:"listing_urls"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ContactForm holds the lead details typed into a listing's contact form.
type ContactForm struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Phone string `json:"phone" yaml:"phone"`
}
