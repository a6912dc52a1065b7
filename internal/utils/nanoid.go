// Package utils holds small helpers shared by models and services.
package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// IDLength matches the size:21 primary key columns.
const IDLength = 21

// GenerateNanoID returns a URL-safe random id of IDLength characters.
func GenerateNanoID() (string, error) {
	return gonanoid.New(IDLength)
}
