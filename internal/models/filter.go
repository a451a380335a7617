package models

// TaskFilter holds one user's last submitted listing criteria.
// A zero value means no filtering at all; every field is optional
// and an empty field clears the corresponding criterion.
//
// Statuses keeps the raw comma-separated input; splitting
// happens when the filter is composed into a predicate.
type TaskFilter struct {
	SearchText string
	StartDate  *Date
	EndDate    *Date
	Statuses   string
}

// IsZero reports whether the filter constrains nothing.
func (f TaskFilter) IsZero() bool {
	return f.SearchText == "" &&
		f.StartDate == nil &&
		f.EndDate == nil &&
		f.Statuses == ""
}
