// Package auth implements the identity gate: signed, time-limited JWT
// credentials carrying {user_id, username, is_admin}, PBKDF2 password
// hashing, and the Echo middleware that verifies credentials on
// protected routes. The vote pipeline only consumes the verified
// Identity; everything else here is plumbing around minting it.
package auth
