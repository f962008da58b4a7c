package store

// CountCoverUses returns how many records (tracks or playlists) reference
// the cover blob. Cover blobs are content-addressed and may be shared
// through playlist inheritance, so deletion must check remaining uses.
func (db *DB) CountCoverUses(ref string) (int, error) {
	var n int
	err := db.Get(&n, `
		SELECT (SELECT COUNT(*) FROM tracks WHERE cover_ref = ?)
		     + (SELECT COUNT(*) FROM playlists WHERE cover_ref = ?)
	`, ref, ref)
	return n, err
}

// ListBlobRefs returns every blob ref any record still points at. Used by
// the startup orphan sweep.
func (db *DB) ListBlobRefs() (map[string]bool, error) {
	refs := make(map[string]bool)

	var rows []string
	if err := db.Select(&rows, `SELECT audio_ref FROM tracks WHERE audio_ref != ''`); err != nil {
		return nil, err
	}
	for _, r := range rows {
		refs[r] = true
	}

	rows = rows[:0]
	if err := db.Select(&rows, `SELECT cover_ref FROM tracks WHERE cover_ref != ''`); err != nil {
		return nil, err
	}
	for _, r := range rows {
		refs[r] = true
	}

	rows = rows[:0]
	if err := db.Select(&rows, `SELECT cover_ref FROM playlists WHERE cover_ref != ''`); err != nil {
		return nil, err
	}
	for _, r := range rows {
		refs[r] = true
	}

	return refs, nil
}
