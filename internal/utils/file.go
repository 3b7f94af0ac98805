package utils

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var imageExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the lowercase file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has a decodable image extension
func IsImageFile(filename string) bool {
	return slices.Contains(imageExts, GetFileExtension(filename))
}

// IsURL reports whether source is an http(s) URL
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// ExtensionFor maps an encoder format name to a file extension
func ExtensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

// baseName returns the input's file name without extension. URLs use the
// last path segment.
func baseName(input string) string {
	name := input
	if IsURL(input) {
		if u, err := url.Parse(input); err == nil {
			name = path.Base(u.Path)
		}
	}
	name = filepath.Base(name)
	if name == "/" || name == "." {
		return "image"
	}
	name = SanitizeFilename(strings.TrimSuffix(name, filepath.Ext(name)))
	if name == "" {
		return "image"
	}
	return name
}

// OutputPath builds "<outDir>/<name><suffix>.<ext>" for an input path or URL
func OutputPath(input, outDir, suffix, format string) string {
	ext := ExtensionFor(format)
	if ext == "" {
		ext = GetFileExtension(input)
		if ext == "" {
			ext = "jpg"
		}
	}
	return filepath.Join(outDir, fmt.Sprintf("%s%s.%s", baseName(input), suffix, ext))
}

// ExpandInputs resolves command arguments into image sources. URLs and
// files pass through in order; a directory contributes its image files in
// lexical order, so a listing's main photo can be named to sort first.
func ExpandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if IsURL(arg) {
			out = append(out, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := ListImageFiles(arg)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no images in %s", arg)
		}
		out = append(out, files...)
	}
	return out, nil
}

// ListImageFiles lists image files directly inside dir, sorted by name
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type()&fs.ModeType == 0 && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	return strings.Trim(result, " .")
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
