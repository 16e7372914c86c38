// Package token issues and decodes signed, expiring bearer tokens for the
// three purposes the identity core knows about: access, email verification
// and password reset.
//
// Every token is a JWS over the same claim shape. The purpose tag and the
// expiry live inside the signed payload, so a token cannot be repurposed or
// extended without invalidating its signature. Decode checks signature,
// then expiry, then purpose, and reports exactly one of [ErrInvalidSignature],
// [ErrExpired] or [ErrPurposeMismatch].
//
// There is no clock skew tolerance: expiry is compared against the codec
// clock at check time.
package token
