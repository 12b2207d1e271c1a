package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// MaxNameDifference is how many characters a truncated or decorated file name
// may differ from the expected one and still be considered the same file
const MaxNameDifference = 10

// File extensions left behind by interrupted or in-flight downloads
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp", ".tmp"}
)

// Common file name decorations added by the engine or the filesystem
var (
	FileNameVariations = []string{"-", "_", " "}
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// ResolveInDir returns the path of name inside dir. It rejects names that
// would escape dir and names of missing or non-regular files.
func ResolveInDir(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("file name must not contain path separators: %q", name)
	}

	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", name)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", name)
	}
	return path, nil
}

// FindFileWithFallback tries to find a file by its original path, and if not found,
// searches for files with similar names in the same directory. Post-processing
// often changes the extension, so a similar name with another extension is
// accepted when no candidate keeps the original one.
func FindFileWithFallback(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("file path is empty")
	}

	// Check if this looks like a URL instead of a file path
	if strings.HasPrefix(filePath, "http://") || strings.HasPrefix(filePath, "https://") {
		return "", fmt.Errorf("file path appears to be a URL: %s", filePath)
	}

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	dir := filepath.Dir(filePath)
	originalName := filepath.Base(filePath)
	originalExt := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(originalName, originalExt)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var sameExt, otherExt []string
	for _, entry := range entries {
		if entry.IsDir() || isPartialDownload(entry.Name()) {
			continue
		}

		entryName := entry.Name()
		entryExt := filepath.Ext(entryName)
		entryBase := strings.TrimSuffix(entryName, entryExt)

		if !isSimilarFileName(entryBase, baseName) {
			continue
		}
		if entryExt == originalExt {
			sameExt = append(sameExt, filepath.Join(dir, entryName))
		} else {
			otherExt = append(otherExt, filepath.Join(dir, entryName))
		}
	}

	if len(sameExt) > 0 {
		sort.Strings(sameExt)
		return sameExt[0], nil
	}
	if len(otherExt) > 0 {
		sortNewestFirst(otherExt)
		return otherExt[0], nil
	}

	return "", fmt.Errorf("file not found: %s", filePath)
}

// isSimilarFileName checks if two file names are similar enough to be considered the same file
func isSimilarFileName(name1, name2 string) bool {
	clean1 := strings.TrimSpace(name1)
	clean2 := strings.TrimSpace(name2)
	if clean1 == "" || clean2 == "" {
		return false
	}

	if clean1 == clean2 {
		return true
	}

	for _, sep := range FileNameVariations {
		if clean1 == sep+clean2 || clean1 == clean2+sep || clean2 == sep+clean1 || clean2 == clean1+sep {
			return true
		}
	}

	// Truncated names: one contains the other and the difference is small
	if strings.Contains(clean1, clean2) || strings.Contains(clean2, clean1) {
		diff := len(clean1) - len(clean2)
		if diff < 0 {
			diff = -diff
		}
		return diff <= MaxNameDifference
	}

	return false
}

func isPartialDownload(filename string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

func sortNewestFirst(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		infoI, errI := os.Stat(paths[i])
		infoJ, errJ := os.Stat(paths[j])
		if errI != nil || errJ != nil {
			return false
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})
}
