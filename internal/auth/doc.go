// Package auth provides authentication and authorisation for Shoplane Core.
//
// It implements the credential and session machinery for the platform:
//   - bcrypt password hashing with a configurable cost factor
//   - HS256 JWT access tokens, short-lived and validated by signature only
//   - opaque single-slot refresh secrets (SHA-256 hash persisted, raw never stored)
//   - a session service (register, login, refresh, logout, identity lookup)
//   - a TTL-bounded permission cache over the role directory
//
// Permissions are module/action pairs resolved per role. A role's permission
// map grants nothing implicitly: an identity with no role, or a role with no
// entry for a module, is denied. Authorisation always fails closed: a
// role-directory error never grants access.
//
// Storage is reached only through the UserDirectory and RoleDirectory
// interfaces; SQLite implementations live in this package alongside them.
package auth
