// Package util - File classification and folder listing for detector inputs.
package util

import (
	"os"
	"path/filepath"
	"sort"
)

// ImageExtensions are the still-image extensions, in lower and upper case.
var ImageExtensions = []string{".jpg", ".JPG", ".jpeg", ".JPEG", ".png", ".PNG", ".bmp", ".BMP"}

// VideoExtensions are the video-file extensions. Only lowercase is accepted.
var VideoExtensions = []string{".avi", ".mov", ".mp4", ".mkv", ".wmv"}

// IsImageFile reports whether path has a still-image extension.
func IsImageFile(path string) bool {
	return hasExtension(path, ImageExtensions)
}

// IsVideoFile reports whether path has a video extension.
func IsVideoFile(path string) bool {
	return hasExtension(path, VideoExtensions)
}

// hasExtension matches the extension exactly against exts.
func hasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ListImageFiles returns the image files directly inside dir.
//
// Arguments:
//   - dir: Directory path containing image files. Subdirectories are not descended.
//
// Returns:
//   - []string: Full paths, sorted by file name.
//   - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}
