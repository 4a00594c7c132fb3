package core

// dedupKey identifies an entry for duplicate detection: same calendar day,
// same amount, same memo.
type dedupKey struct {
	date   string
	amount int64
	memo   string
}

// DedupIndex answers membership questions for automatically ingested
// entries. Build it from a ledger snapshot at the start of a run and Add
// every entry appended during the run, so re-delivered notifications within
// one batch are also caught.
type DedupIndex struct {
	seen map[dedupKey]struct{}
}

// NewDedupIndex indexes an existing ledger snapshot.
func NewDedupIndex(entries []LedgerEntry) *DedupIndex {
	idx := &DedupIndex{seen: make(map[dedupKey]struct{}, len(entries))}
	for _, e := range entries {
		idx.Add(e)
	}
	return idx
}

func keyOf(e LedgerEntry) dedupKey {
	return dedupKey{date: e.Date().String(), amount: e.Amount.Yen, memo: e.Memo}
}

// Contains reports whether an entry with the same (date, amount, memo)
// is already present.
func (idx *DedupIndex) Contains(e LedgerEntry) bool {
	_, ok := idx.seen[keyOf(e)]
	return ok
}

// Add records an entry in the index.
func (idx *DedupIndex) Add(e LedgerEntry) {
	idx.seen[keyOf(e)] = struct{}{}
}
