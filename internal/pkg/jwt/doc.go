// Package jwt issues and verifies the short-lived HS512 tokens embedded in
// download links handed out after a successful verification.
package jwt
