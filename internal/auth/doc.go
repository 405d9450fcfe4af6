// Package auth implements operator accounts and token-based authentication
// for BlueTrace Core.
//
// Operators sign up with a username and password; passwords are stored as
// Argon2id PHC strings and never leave the package. Successful login issues
// a short-lived HS256 JWT whose subject is the operator ID. The API layer
// validates tokens by signature alone, so request authentication never
// touches the database.
package auth
