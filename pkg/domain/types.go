package domain

import "time"

// Source identifies the marketplace a product was scraped from.
type Source string

const (
	SourceAmazon     Source = "Amazon"
	SourceAliExpress Source = "Aliexpress"
	SourceJumia      Source = "Jumia"
)

// Product is one normalized search result. Optional fields are nil when the
// source page did not carry them or the value failed to parse. A Product is
// never mutated after its normalizer builds it.
type Product struct {
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Image           string   `json:"image,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	OriginalPrice   *float64 `json:"originalPrice,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	NumberOfRatings *int     `json:"numberOfRatings,omitempty"`
	ShippingInfo    string   `json:"shippingInfo,omitempty"`
	IsSponsored     bool     `json:"isSponsored"`
	Source          Source   `json:"source"`
}

// CriterionField names a sortable product dimension.
type CriterionField string

const (
	FieldPrice           CriterionField = "price"
	FieldRating          CriterionField = "rating"
	FieldNumberOfRatings CriterionField = "number_of_ratings"
)

// Criterion is one (field, direction) pair. An ordered slice of criteria
// defines sort precedence, first entry being the primary key.
type Criterion struct {
	Field     CriterionField
	Ascending bool
}

// DefaultCriteria orders results by price ascending, ties broken by rating
// descending.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{Field: FieldPrice, Ascending: true},
		{Field: FieldRating, Ascending: false},
	}
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatSession is the unit of conversational continuity, keyed by
// (email, session key). History is append-only and ordered.
type ChatSession struct {
	Email      string    `json:"email"`
	SessionKey string    `json:"sessionKey"`
	History    []Message `json:"history"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
