package models

// Tag is a transaction category label. Partner-level tags have no user and are
// visible to everyone; user tags belong to exactly one user.
type Tag struct {
	BaseModel

	UserID *uint  `gorm:"index" json:"user_id"`
	Name   string `gorm:"not null;index" json:"name"`
}
