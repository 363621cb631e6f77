// Package git reports whether the lockpass vault file is versioned.
//
// The vault holds only ciphertext, so it can be committed safely. The
// status command uses these checks to point out a vault that git ignores
// or has not been added yet.
package git
