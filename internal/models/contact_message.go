package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactMessage is a persisted contact-form submission.
type ContactMessage struct {
	ID        primitive.ObjectID `json:"id,omitempty"   bson:"_id,omitempty"`
	Name      string             `json:"name,omitempty" bson:"name,omitempty"`
	Email     string             `json:"email"          bson:"email"`
	Message   string             `json:"message"        bson:"message"`
	UserID    *string            `json:"userId"         bson:"userId"`
	UA        *string            `json:"ua,omitempty"   bson:"ua"`
	CreatedAt time.Time          `json:"createdAt"      bson:"createdAt"`
}

func (ContactMessage) CollectionName() string { return "contact_messages" }
