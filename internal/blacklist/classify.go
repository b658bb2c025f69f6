// file: internal/blacklist/classify.go
// version: 1.0.0
// guid: 6a2eec6e-24aa-46d1-95c2-9185e594002b

package blacklist

import (
	"strings"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// Failures caused by the local environment. The release itself is fine, so
// these never blacklist.
var nonBlacklistable = []string{
	"mount",
	"permission denied",
	"access denied",
	"not accessible",
	"disk full",
	"no space left",
	"insufficient space",
	"disk space",
	"path not found",
	"path does not exist",
	"read-only file system",
	"directory not found",
}

// Failures that indicate a broken release.
var blacklistable = []string{
	"crc",
	"corrupt",
	"verification failed",
	"par2",
	"repair failed",
	"unpack failed",
	"extraction failed",
	"failed to extract",
	"missing articles",
	"incomplete",
	"password",
	"encrypted",
	"not enough repair blocks",
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// ShouldBlacklist reports whether a failure message describes a bad release.
// Environment problems win over release problems. Messages matching neither
// list are not blacklisted.
func ShouldBlacklist(errText string) bool {
	text := strings.ToLower(errText)
	if containsAny(text, nonBlacklistable) {
		return false
	}
	return containsAny(text, blacklistable)
}

var failureTypes = []struct {
	failure  models.FailureType
	keywords []string
}{
	{models.FailureExtraction, []string{"extract", "unpack", "unrar"}},
	{models.FailureVerification, []string{"verif", "crc", "par2", "repair", "checksum", "hash"}},
	{models.FailureImport, []string{"import"}},
	{models.FailureMissingFiles, []string{"missing", "not found", "no files", "incomplete"}},
}

// DetermineFailureType tags a failure message. The first matching group wins;
// anything else is a generic download failure.
func DetermineFailureType(errText string) models.FailureType {
	text := strings.ToLower(errText)
	for _, ft := range failureTypes {
		if containsAny(text, ft.keywords) {
			return ft.failure
		}
	}
	return models.FailureDownload
}
