// Package contacts holds the contact book owned by each identity: the
// model, input validation, list filters and the ownership-scoped service
// used by the HTTP layer.
package contacts
