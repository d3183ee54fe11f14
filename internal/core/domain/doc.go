// Package domain defines the core domain models for Keyforge:
// User, Product, Key and KeyToken, together with the domain error
// taxonomy and identifier helpers.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling.
package domain
