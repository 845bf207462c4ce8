package models

// User mirrors the vendor's user record. PartnerCustomerID ("pcid") is the
// identifier the partner uses to address this user on the vendor API.
type User struct {
	BaseModel

	PartnerCustomerID string `gorm:"uniqueIndex;not null" json:"partner_customer_id"`
	Email             string `gorm:"index" json:"email"`
	Password          string `json:"-"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	PostalCode        string `json:"postal_code"`
	BirthYear         int    `json:"birth_year"`

	Accounts      []Account      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Alerts        []Alert        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Notifications []Notification `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
