// Package auth implements session-based authentication for the library
// API: registration and login with CAPTCHA verification, argon2id password
// hashing, opaque server-side sessions with per-session CSRF tokens, and
// sliding-window rate limiting per client IP and route class.
package auth
