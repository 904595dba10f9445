// Package internal holds cryptographic token helpers shared by the root
// authgate package and its subpackages. Nothing here is part of the public
// API surface.
package internal
