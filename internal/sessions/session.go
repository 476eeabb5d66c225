package sessions

import "time"

// Session represents a persistent refresh session. The refresh token is the
// lookup key; UserUUID points back at the account that owns it.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	UserUUID     string    `bson:"userUuid" json:"userUuid"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
