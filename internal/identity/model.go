package identity

import "time"

// Role separates back-office staff from wallet owners.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleCustomer Role = "CUSTOMER"
)

// User is a registered account holder. Customers own wallets; their customer
// id is their user id. Employees own no wallets and may act on any customer.
type User struct {
	ID           string
	Username     string
	Name         string
	Surname      string
	Role         Role
	PasswordHash []byte
	CreatedAt    time.Time
}

// CustomerID returns the customer identity this user acts as, or empty for
// employees.
func (u User) CustomerID() string {
	if u.Role == RoleCustomer {
		return u.ID
	}
	return ""
}

// Credentials is a login request.
type Credentials struct {
	Username string
	Password string
}
