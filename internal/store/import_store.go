package store

// ImportStore bundles the stores an archive import reads and writes.
type ImportStore struct {
	*AccountStore
	*ContactGroupStore
	*TagStore
	*ContentStore
	*PersonStore
}

// NewImportStore creates an ImportStore whose stores share base.
func NewImportStore(base Base) *ImportStore {
	return &ImportStore{
		AccountStore:      NewAccountStore(base),
		ContactGroupStore: NewContactGroupStore(base),
		TagStore:          NewTagStore(base),
		ContentStore:      NewContentStore(base),
		PersonStore:       NewPersonStore(base),
	}
}
