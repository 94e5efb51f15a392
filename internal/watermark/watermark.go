// Package watermark recovers identity fields from the labelled text printed
// on an issued sheet.
package watermark

import (
	"errors"
	"regexp"
	"strings"

	"github.com/kwarc/cheatsheets/internal/fields"
)

// Printed labels.
const (
	LabelStudentName  = "Student Name"
	LabelQuizID       = "Quiz Id"
	LabelInstanceID   = "Instance Id"
	LabelCourseID     = "Course Id"
	LabelUniversityID = "University Id"
	LabelDownloadedAt = "Downloaded At"
)

// labelKeys maps lower-cased labels to field keys.
var labelKeys = map[string]string{
	"student name":  fields.StudentName,
	"quiz id":       fields.WeekID,
	"instance id":   fields.InstanceID,
	"course id":     fields.CourseID,
	"university id": fields.UniversityID,
	"downloaded at": fields.DownloadDate,
}

var (
	ErrNoText   = errors.New("no text in document")
	ErrNoFields = errors.New("no watermark fields found")
)

var (
	labelRe = regexp.MustCompile(`(?i)\b(student\s+name|quiz\s+id|instance\s+id|course\s+id|university\s+id|downloaded\s+at)\s*:[ \t]*`)
	// start of any other printed label, e.g. "Student Id:"
	nextLabelRe = regexp.MustCompile(`[A-Z][a-z]+ (?:Name|Id|At)\s*:`)
	gapRe       = regexp.MustCompile(`\s{2,}`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Parse scans text for labelled values. The first non-empty value of each
// label wins. A value ends at a run of two or more white-space characters,
// at the start of another label, or at the end of the line.
func Parse(text string) (fields.Fields, error) {
	if strings.TrimSpace(text) == "" {
		return fields.Fields{}, ErrNoText
	}

	values := map[string]string{}
	for _, m := range labelRe.FindAllStringSubmatchIndex(text, -1) {
		label := strings.ToLower(spaceRe.ReplaceAllString(text[m[2]:m[3]], " "))
		key := labelKeys[label]
		if _, done := values[key]; done {
			continue
		}
		if v := valueAt(text[m[1]:]); v != "" {
			values[key] = v
		}
	}

	f := fields.Fields{
		CourseID:     values[fields.CourseID],
		InstanceID:   values[fields.InstanceID],
		UniversityID: values[fields.UniversityID],
		StudentName:  values[fields.StudentName],
		WeekID:       values[fields.WeekID],
		DownloadDate: values[fields.DownloadDate],
	}
	if f.Empty() {
		return f, ErrNoFields
	}
	return f, nil
}

func valueAt(rest string) string {
	if i := strings.IndexAny(rest, "\r\n"); i >= 0 {
		rest = rest[:i]
	}
	if loc := gapRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	if loc := nextLabelRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.TrimSpace(rest)
}
