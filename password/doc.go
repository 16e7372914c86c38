// Package password hashes and verifies account passwords.
//
// # Output format
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes ($2a$, $2b$, $2y$) written by older deployments still verify.
// [Argon2.NeedsUpgrade] reports them, and any argon2id hash produced with
// weaker parameters, so the caller can re-hash after a successful login.
//
// The package never stores passwords and never logs them.
package password
