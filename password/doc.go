// Package password provides an Argon2id hashing helper for credentials
// providers. Hashes use the standard PHC string format so values written by
// other argon2id implementations verify transparently.
package password
