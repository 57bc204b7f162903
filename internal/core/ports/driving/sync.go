package driving

// SyncReport summarises one remote synchronisation pass.
type SyncReport struct {
	// Uploaded is the number of artifacts uploaded for the first time.
	Uploaded int

	// Replaced is the number of artifacts whose remote document was
	// replaced because the content hash changed.
	Replaced int

	// Skipped is the number of artifacts left untouched (hash match).
	Skipped int

	// Deleted is the number of orphaned remote documents removed.
	Deleted int

	// Failed is the number of artifacts left in a recoverable
	// intermediate state (upload or delete failure).
	Failed int

	// PendingVerification lists document ids whose RAG indexing was not
	// confirmed within the retry schedule. They remain queued for the
	// next invocation.
	PendingVerification []string
}
