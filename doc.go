// Package auth guards a submission portal with signed session tokens and
// role based route policies.
//
// Credentials:
//   - CredentialVerifier hashes passwords with bcrypt. Every hash carries its
//     own salt so two hashes of the same password differ.
//   - ValidatePasswordPolicy enforces the minimum length on signup and on
//     password change. Login only verifies.
//
// Tokens:
//   - TokenServiceImpl issues HS256 JWTs with a seven day lifetime carrying
//     the user id, email and role. The signing key is required at startup and
//     known placeholder keys are rejected.
//
// Access gate:
//   - Gate reads the auth-token cookie first and the Authorization bearer
//     header second. An invalid or expired token means anonymous.
//   - RoutePolicy classifies paths in a fixed order: admin prefixes,
//     authenticated prefixes, then the login and signup pages.
//   - Admin routes re-read the role from the RoleLookup on every request. A
//     failing or slow lookup denies access.
//   - API paths are answered with {"error": ...} JSON and 401 or 403, page
//     routes are redirected.
//
// The jwtware package adapts Gate to go-router middleware, and repository
// provides the Bun backed UserStore.
package auth
