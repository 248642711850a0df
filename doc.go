// Package tokenx issues and verifies signed, claim-bearing tokens.
//
// A token kind is described by a Definition: a kind tag, a signature
// algorithm and the mapping between domain attributes and wire claim keys.
// Every encoded token carries its kind under the "knd" claim, so a token
// minted for one kind is never accepted as another, even when both kinds
// share a signing key.
//
// Encode and Decode are pure functions and are safe for concurrent use. Key
// material is never mutated.
package tokenx
