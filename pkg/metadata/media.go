package metadata

import (
	"path/filepath"
	"strings"
)

// Container groups extensions by how the native extractor reads their dates.
type Container string

const (
	ContainerEXIF  Container = "exif"  // JPEG and TIFF-based raw formats
	ContainerISO   Container = "iso"   // ISO base media (MP4, QuickTime)
	ContainerOther Container = "other" // known media without a native date reader
)

type mediaType struct {
	mime      string
	container Container
}

var extensionToMediaType = map[string]mediaType{
	// Processed pictures
	"jpg": {"image/jpeg", ContainerEXIF}, "jpeg": {"image/jpeg", ContainerEXIF}, "jpe": {"image/jpeg", ContainerEXIF},
	"jfif": {"image/jpeg", ContainerEXIF},
	"tif":  {"image/tiff", ContainerEXIF}, "tiff": {"image/tiff", ContainerEXIF},
	"png":  {"image/png", ContainerOther},
	"gif":  {"image/gif", ContainerOther},
	"bmp":  {"image/bmp", ContainerOther},
	"webp": {"image/webp", ContainerOther},
	"heic": {"image/heic", ContainerOther}, "heif": {"image/heif", ContainerOther}, "hif": {"image/heif", ContainerOther},
	"jxl": {"image/jxl", ContainerOther},
	"psd": {"application/vnd.adobe.photoshop", ContainerOther},

	// Raw pictures (TIFF structured unless noted)
	"arw": {"image/x-sony-arw", ContainerEXIF},
	"cr2": {"image/x-canon-cr2", ContainerEXIF},
	"cr3": {"image/x-canon-cr3", ContainerOther},
	"dng": {"image/x-adobe-dng", ContainerEXIF},
	"nef": {"image/x-nikon-nef", ContainerEXIF},
	"orf": {"image/x-olympus-orf", ContainerEXIF},
	"pef": {"image/x-pentax-pef", ContainerEXIF},
	"raf": {"image/x-fujifilm-raf", ContainerOther},
	"rw2": {"image/x-panasonic-rw2", ContainerEXIF},
	"sr2": {"image/x-sony-sr2", ContainerEXIF},

	// Video
	"mp4": {"video/mp4", ContainerISO},
	"m4v": {"video/x-m4v", ContainerISO},
	"mov": {"video/quicktime", ContainerISO},
	"3gp": {"video/3gpp", ContainerISO},
	"3g2": {"video/3gpp2", ContainerISO},
	"avi": {"video/x-msvideo", ContainerOther},
	"mkv": {"video/x-matroska", ContainerOther},
	"webm": {"video/webm", ContainerOther},
	"wmv": {"video/x-ms-wmv", ContainerOther},
	"mts": {"video/m2ts", ContainerOther}, "m2ts": {"video/m2ts", ContainerOther},
}

// LookupMedia returns the MIME type and container for a file name based on its
// extension.
func LookupMedia(name string) (string, Container, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", "", false
	}
	mt, ok := extensionToMediaType[ext[1:]]
	if !ok {
		return "", "", false
	}
	return mt.mime, mt.container, true
}
