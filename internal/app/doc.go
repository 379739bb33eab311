// Package app contains the application service orchestrating vote
// intake, account management, and competition administration over the
// domain ports.
package app
