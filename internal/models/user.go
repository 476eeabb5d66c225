package models

import "time"

// User represents an application user. Accounts are created with email and
// password; users arriving through an external OIDC provider get a record
// without a password hash.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	UUID         string    `bson:"uuid" json:"uuid"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
