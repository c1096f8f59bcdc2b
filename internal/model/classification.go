package model

// Category is the closed set of classification outcomes. The string
// values are the persisted form.
type Category string

const (
	CategoryRoutine     Category = "normal"
	CategoryPriority    Category = "important"
	CategoryOneTimeCode Category = "verification"
	CategoryPromotional Category = "marketing"
)

// Notifies reports whether messages of this category should raise a
// user notification.
func (c Category) Notifies() bool {
	return c == CategoryPriority || c == CategoryOneTimeCode
}

// Classification is the result of classifying one message. Empty code or
// link means nothing was extracted.
type Classification struct {
	Category         Category `json:"category"`
	VerificationCode string   `json:"verification_code,omitempty"`
	VerificationLink string   `json:"verification_link,omitempty"`
	ShouldNotify     bool     `json:"should_notify"`
}

// DefaultClassification is attached to every message when classification
// is disabled.
func DefaultClassification() Classification {
	return Classification{Category: CategoryRoutine}
}
