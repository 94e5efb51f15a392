package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// ChecksumLen is the number of hex characters kept from the SHA-256 digest.
const ChecksumLen = 8

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Checksum returns the first ChecksumLen lowercase hex characters of the
// SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:ChecksumLen]
}

// Sanitize lowercases s, collapses every run of non-alphanumerics into a
// single hyphen and trims hyphens from both ends.
func Sanitize(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// SlotPrefix is the stored-file prefix shared by every version of one
// submission slot. userID is used verbatim.
func SlotPrefix(instanceID, userID, weekID string) string {
	return fmt.Sprintf("%s_%s_%s", Sanitize(instanceID), userID, Sanitize(weekID))
}

// FileName builds the stored name {instance}_{user}_{week}_{checksum}.pdf.
func FileName(instanceID, userID, weekID, checksum string) string {
	return SlotPrefix(instanceID, userID, weekID) + "_" + checksum + ".pdf"
}

// PrefixOf strips the trailing "_<checksum>.pdf" from a stored name.
// Names not ending in ".pdf" or without an underscore come back unchanged.
func PrefixOf(fileName string) string {
	base, ok := strings.CutSuffix(fileName, ".pdf")
	if !ok {
		return fileName
	}
	i := strings.LastIndexByte(base, '_')
	if i < 0 {
		return fileName
	}
	return base[:i]
}
