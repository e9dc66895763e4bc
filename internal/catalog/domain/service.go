package domain

// Service is a purchasable inquiry product listed in the catalog.
type Service struct {
	ID          uint    `json:"id" gorm:"primaryKey" yaml:"-"`
	Name        string  `json:"name" gorm:"uniqueIndex;not null" yaml:"name"`
	Description *string `json:"description" yaml:"description"`
	Price       float64 `json:"price" gorm:"not null" yaml:"price"`
	ImageURL    *string `json:"imageUrl" yaml:"imageUrl"`
}
