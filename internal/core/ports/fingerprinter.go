package ports

// Fingerprinter computes modification fingerprints for source units.
type Fingerprinter interface {
	// Fingerprint returns a content hash for the file at path.
	Fingerprint(path string) (uint64, error)
}
