// Package ir holds the canonical value model used for content addressing.
//
// Values are a closed set: strings, 64-bit integers, booleans, arrays and
// objects. There are no floats and no null, so every value has exactly one
// canonical byte form (RFC 8785) and a stable hash.
//
// ir imports nothing internal; query trees and compiled plans are encoded
// into ir values before they are hashed or stored.
package ir
