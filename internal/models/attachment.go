// ABOUTME: Image attachment references stored on notes.
// ABOUTME: Classifies sources and builds data URIs from local files.

package models

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// ImageKind describes how an image reference can be resolved.
type ImageKind int

const (
	ImageInvalid ImageKind = iota
	ImageDataURI
	ImageRemote
)

// ClassifyImage reports what kind of reference src is. Only image data URIs
// and http(s) URLs can be embedded.
func ClassifyImage(src string) ImageKind {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "data:image/") && strings.Contains(src, ",") {
		return ImageDataURI
	}
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return ImageInvalid
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return ImageRemote
	}
	return ImageInvalid
}

// DataURI encodes image bytes as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
