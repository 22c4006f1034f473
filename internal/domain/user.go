package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	UserType     string
	AccountType  string
	MobileNumber string
	NGOID        string
	DOB          *time.Time
	Address      string
	City         string
	Pincode      string
	Country      string
	Occupation   string
}
