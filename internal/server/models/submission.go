// Package models defines server-side data models persisted in the database.
package models

import "time"

// SlotKey identifies one submission slot. Each slot holds at most one sheet.
type SlotKey struct {
	UserID       string
	InstanceID   string
	CourseID     string
	UniversityID string
	WeekID       string
}

// Submission is the ledger row of the sheet currently held by a slot.
type Submission struct {
	SlotKey

	StudentName string
	// Checksum is the first 8 hex characters of the document SHA-256.
	Checksum string
	// FileName is the stored name, {instance}_{user}_{week}_{checksum}.pdf.
	FileName string
	// DateOfDownload is the issue timestamp recovered from the sheet, verbatim.
	DateOfDownload string

	CreatedAt time.Time
	UpdatedAt time.Time
}
