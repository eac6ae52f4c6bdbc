package service

import (
	"path"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeName strips everything that could turn an identifier into a path
func SanitizeName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "..", "")
	return strings.TrimLeft(name, ".")
}

// ReceiptPath is where the blob of a receipt lives. Receipts are fanned
// out by the first two characters of their id.
func ReceiptPath(id string) string {
	id = SanitizeName(id)
	if len(id) < 2 {
		return path.Join("receipts", id)
	}
	return path.Join("receipts", id[:2], id)
}

// ArchivePath is the archived document of a report after a transition
func ArchivePath(reportID, snapshotID string) string {
	return path.Join("archive", SanitizeName(reportID), SanitizeName(snapshotID)+".json")
}

// ArchiveReceiptPath is the archived copy of a receipt next to its document
func ArchiveReceiptPath(reportID, snapshotID, receiptID string) string {
	return path.Join("archive", SanitizeName(reportID), SanitizeName(snapshotID), SanitizeName(receiptID))
}
