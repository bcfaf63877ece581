// Package metadata turns the output of a metadata tool into a flat key/value
// map and classifies files as photo/video or other.
//
// Three extractors are provided: ExifTool (one process per file, text output),
// StayOpen (one persistent exiftool process) and Native (goexif and go-mp4, no
// external binary). All of them report fields under exiftool's display names.
package metadata
