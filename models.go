// this file defines the data structures used by the HTTP layer
package main

// NewUser is the POST /api/users request body. The users table is not
// related to ratings; votes key on the client fingerprint instead.
type NewUser struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}
