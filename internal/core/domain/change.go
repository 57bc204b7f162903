package domain

// ChangeKind classifies a change notification.
type ChangeKind int

const (
	// EntityAdded indicates a new entity page appeared.
	EntityAdded ChangeKind = iota

	// EntityModified indicates an existing entity page changed.
	EntityModified

	// EntityRemoved indicates an entity page disappeared.
	EntityRemoved

	// ListingChanged indicates a category/collection page changed.
	// The genuinely new entity must be extracted from the diff.
	ListingChanged
)

// String returns a human-readable name for the change kind.
func (k ChangeKind) String() string {
	switch k {
	case EntityAdded:
		return "entity_added"
	case EntityModified:
		return "entity_modified"
	case EntityRemoved:
		return "entity_removed"
	case ListingChanged:
		return "listing_changed"
	default:
		return "unknown"
	}
}

// ChangeEvent is one canonical change notification, produced by the
// payload normaliser from either accepted webhook shape.
type ChangeEvent struct {
	// SubjectURL is the page the notifier observed.
	SubjectURL string

	// Kind classifies the change.
	Kind ChangeKind

	// DiffText is the raw textual diff, if the notifier supplied one.
	// Lines are prefixed with +, - or a space.
	DiffText string

	// FullContent is the full textual snapshot of the subject page,
	// if the notifier supplied one.
	FullContent string
}

// HasContent reports whether the event carries any usable content.
// Non-removal events must carry at least a diff or a full snapshot.
func (e ChangeEvent) HasContent() bool {
	return e.DiffText != "" || e.FullContent != ""
}
