// Package mediatypes defines the image file extension allow-list used by
// the scanner and path resolver.
//
// Extensions are compared case-insensitively and always carry a leading
// dot. The default set covers the common picture frame formats: jpg,
// jpeg, png, gif and webp.
package mediatypes
