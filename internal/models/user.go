package models

// User describes a platform account that can own and join companies.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Memberships []CompanyMember `gorm:"foreignKey:UserID" json:"-"`
}
