// Package fields holds the identity fields recovered from an uploaded sheet
// and the rules for combining the two extraction channels.
package fields

// Keys in the order they are reported.
const (
	CourseID     = "courseId"
	InstanceID   = "instanceId"
	UniversityID = "universityId"
	WeekID       = "weekId"
	StudentID    = "studentId"
	StudentName  = "studentName"
	DownloadDate = "downloadDate"
)

// Required lists the keys that must resolve before a submission is accepted.
var Required = []string{CourseID, InstanceID, UniversityID, WeekID, StudentID, DownloadDate}

// Fields is the set of values one channel produced. Empty means absent.
type Fields struct {
	CourseID     string `json:"courseId,omitempty"`
	InstanceID   string `json:"instanceId,omitempty"`
	UniversityID string `json:"universityId,omitempty"`
	StudentID    string `json:"studentId,omitempty"`
	StudentName  string `json:"studentName,omitempty"`
	WeekID       string `json:"weekId,omitempty"`
	DownloadDate string `json:"downloadDate,omitempty"`
}

// Get returns the value for key, or "" for unknown keys.
func (f Fields) Get(key string) string {
	switch key {
	case CourseID:
		return f.CourseID
	case InstanceID:
		return f.InstanceID
	case UniversityID:
		return f.UniversityID
	case StudentID:
		return f.StudentID
	case StudentName:
		return f.StudentName
	case WeekID:
		return f.WeekID
	case DownloadDate:
		return f.DownloadDate
	}
	return ""
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f == Fields{}
}

// Missing returns the required keys without a value, in Required order.
func (f Fields) Missing() []string {
	var missing []string
	for _, k := range Required {
		if f.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Merge takes each field from primary when non-empty, else from fallback.
func Merge(primary, fallback Fields) Fields {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Fields{
		CourseID:     pick(primary.CourseID, fallback.CourseID),
		InstanceID:   pick(primary.InstanceID, fallback.InstanceID),
		UniversityID: pick(primary.UniversityID, fallback.UniversityID),
		StudentID:    pick(primary.StudentID, fallback.StudentID),
		StudentName:  pick(primary.StudentName, fallback.StudentName),
		WeekID:       pick(primary.WeekID, fallback.WeekID),
		DownloadDate: pick(primary.DownloadDate, fallback.DownloadDate),
	}
}
