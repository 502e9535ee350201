// Package userstore provides ready-made credential store implementations:
// a Redis-backed store for deployments and an in-memory store for tests and
// examples. Both satisfy the engine's UserStore interface.
package userstore
