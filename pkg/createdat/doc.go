// Package createdat resolves the capture date of a media file.
//
// Resolution walks an ordered list of strategies: embedded metadata fields,
// optionally the filesystem modification date, then a date pattern in the
// file name. The first strategy that yields a value decides the result.
package createdat
