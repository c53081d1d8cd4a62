/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"path"
	"strings"

	"museumkiosk/internal/domain"
)

// MediaKind is the player a media element needs.
type MediaKind string

const (
	MediaImage   MediaKind = "image"
	MediaVideo   MediaKind = "video"
	MediaAudio   MediaKind = "audio"
	MediaUnknown MediaKind = "unknown"
)

var mediaKinds = map[string]MediaKind{
	"jpg": MediaImage, "jpeg": MediaImage, "png": MediaImage, "gif": MediaImage, "webp": MediaImage,
	"mp4": MediaVideo, "webm": MediaVideo, "ogg": MediaVideo, "mpeg": MediaVideo,
	"mp3": MediaAudio, "wav": MediaAudio, "m4a": MediaAudio,
}

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"ogg":  "video/ogg",
	"mpeg": "video/mpeg",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
}

// Extension returns the lower-case extension of m, from ExtensionFile or
// the public path.
func Extension(m domain.Media) string {
	ext := m.ExtensionFile
	if ext == "" {
		ext = path.Ext(m.PublicPath)
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ClassifyMedia picks the media kind from the file extension.
func ClassifyMedia(m domain.Media) MediaKind {
	if k, ok := mediaKinds[Extension(m)]; ok {
		return k
	}
	return MediaUnknown
}

// MIMEType returns the MIME type for m, or application/octet-stream.
func MIMEType(m domain.Media) string {
	if t, ok := mimeTypes[Extension(m)]; ok {
		return t
	}
	return "application/octet-stream"
}
