// Package textutil provides text normalization helpers for turning scene
// titles into filesystem-safe tokens and comparing titles loosely.
package textutil
