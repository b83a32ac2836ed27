package model

import "time"

// User is an account row. ID is derived from name and birth date and is not
// unique; RowID identifies the stored row.
type User struct {
	RowID        int64
	ID           string
	FirstName    string
	LastName     string
	DOB          string
	Email        string
	Phone        string
	RegisteredAt time.Time
	Password     string
	LastLoginAt  *time.Time
	LastLogoutAt *time.Time
}

// FullName joins first and last name, dropping an empty last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
