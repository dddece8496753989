package model

import "gorm.io/gorm"

// Document is an audited entity: its authorship is blameable and its content is versioned.
type Document struct {
	gorm.Model

	Title string `json:"title" gorm:"not null" loggable:"versioned"`
	Body  string `json:"body" gorm:"type:text" loggable:"versioned"`

	// CreatedBy and UpdatedBy hold the username of the actor.
	CreatedBy string `json:"created_by" gorm:"type:varchar(255)" blameable:"create"`
	UpdatedBy string `json:"updated_by" gorm:"type:varchar(255)" blameable:"update"`

	// OwnerID references the user who created the document.
	OwnerID *uint `json:"owner_id,omitempty" gorm:"index" blameable:"create"`
}
