// Package model defines the core domain types for the Blox Studios portal.
package model

// Profile holds the user-editable identity fields.
type Profile struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email,omitempty"`
}
