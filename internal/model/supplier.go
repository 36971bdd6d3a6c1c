package model

// Supplier is a lookup record. Products point at it by id; a supplier owns no
// product lifecycle.
type Supplier struct {
	BaseModel
	Name          string `gorm:"type:varchar(255);not null" json:"name"`
	Email         string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone         string `gorm:"type:varchar(32)" json:"phone"`
	Address       string `gorm:"type:text" json:"address"`
	ContactPerson string `gorm:"type:varchar(255);not null" json:"contact_person"`
}
