// Package resolver classifies filesystem paths under configured media
// roots into (album, relative path) pairs.
//
// An album is the file's containing directory expressed as a
// forward-slash path relative to the root, so nested directories form
// nested album names like "vacation/2024". Files sitting directly in a
// media root belong to no album and are rejected.
package resolver
