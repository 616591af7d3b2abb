package domain

import "time"

type ContactPreference string

const (
	ContactPreferenceEmail ContactPreference = "email"
	ContactPreferencePhone ContactPreference = "phone"
	ContactPreferenceText  ContactPreference = "text"
)

type Contact struct {
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Preferred ContactPreference `json:"preferred"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Version   int32             `json:"-"`
}
