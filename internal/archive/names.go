package archive

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// safeNameLimit caps extraction folder names derived from archive filenames.
const safeNameLimit = 80

// shortHash returns the first n hex characters of the md5 of s. The hash
// shortens names, nothing more; collisions are handled by unique-dir probing.
func shortHash(s string, n int) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}

// stagedDirName is the short staging directory name used under the temp
// area: a fixed tag plus an 8-character hash of the destination.
func stagedDirName(dest string) string {
	return "cx_" + shortHash(dest, 8)
}

// rootDirName is the last-resort directory name used directly under the
// filesystem root when the destination itself breaks the path limit. Every
// character counts here, so the tag shrinks to one letter and the hash to
// four.
func rootDirName(dest string) string {
	return "c" + shortHash(dest, 4)
}

// SafeFolderName derives an extraction folder name from an archive path:
// the filename stem, hash-shortened when it exceeds the folder name limit.
func SafeFolderName(archivePath string) string {
	base := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	return safeFolderName(base, safeNameLimit)
}

func safeFolderName(base string, maxLen int) string {
	if len(base) <= maxLen {
		return base
	}
	hash := shortHash(base, 6)
	keep := maxLen - 8
	if keep < 10 {
		keep = 10
	}
	runes := []rune(base)
	if keep > len(runes) {
		keep = len(runes)
	}
	short := string(runes[:keep]) + "_" + hash
	if len(short) > maxLen {
		short = "cx_" + hash
	}
	return short
}
