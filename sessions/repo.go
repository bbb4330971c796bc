package sessions

// Repo is the ledger of sessions that have already been signed.
// Entries are only ever appended.
type Repo interface {
	// Contains reports whether the canonical form of id is in the ledger
	Contains(id ID) (bool, error)

	// Append records id as signed
	Append(id ID) error

	// Count returns the number of recorded entries, duplicates included
	Count() (int, error)

	// List returns the recorded sessions in the order they were appended
	List() ([]ID, error)
}
