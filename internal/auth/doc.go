// Package auth provides the boundary collaborators consumed by the hub:
// opaque bearer-credential issuance and validation, password hashing, a
// generic user record store, and the HTTP glue for register/login. The hub
// core treats all of this as a black box.
package auth
