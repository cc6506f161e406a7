// Package exterrors defines error-handling and primitives
// used across maddy, notably to pass additional error
// information across module boundaries.
package exterrors
