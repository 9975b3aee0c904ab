package utils

import "github.com/google/uuid"

// GenerateID returns a fresh random identifier for locally created rows
func GenerateID() string {
	return uuid.NewString()
}
