package model

// ChangeKind classifies a field-level difference.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// EmptyPlaceholder is shown in place of an empty value in change reviews.
const EmptyPlaceholder = "(empty)"

// ChangeEntry describes one tracked field whose normalized value differs
// between an original and a candidate record.
type ChangeEntry struct {
	Field    Field
	Label    string
	OldValue string
	NewValue string
	Kind     ChangeKind
}

// DisplayOld returns OldValue, or EmptyPlaceholder when it is empty.
func (e ChangeEntry) DisplayOld() string {
	return displayValue(e.OldValue)
}

// DisplayNew returns NewValue, or EmptyPlaceholder when it is empty.
func (e ChangeEntry) DisplayNew() string {
	return displayValue(e.NewValue)
}

func displayValue(v string) string {
	if v == "" {
		return EmptyPlaceholder
	}
	return v
}
