package lsm

import "sort"

// compactIfNeededLocked walks levels from newest to oldest, merging any
// level that has grown past the configured fanout into the next. Must be
// called with t.mu held for writing.
func (t *Tree) compactIfNeededLocked() error {
	for lvl := 0; lvl < len(t.levels); lvl++ {
		if len(t.levels[lvl]) > t.config.LevelFanout {
			if err := t.compactLevelLocked(lvl); err != nil {
				return err
			}
		}
	}
	return nil
}

// compactLevelLocked merges every SSTable in lvl and lvl+1 into a single
// SSTable at lvl+1, deduplicating values and dropping any value whose most
// recent operation among the merged tables was a tombstone. lvl is left
// empty afterward.
func (t *Tree) compactLevelLocked(lvl int) error {
	for len(t.levels) <= lvl+1 {
		t.levels = append(t.levels, nil)
	}

	newer := append([]*sstable(nil), t.levels[lvl]...)
	sort.Slice(newer, func(a, b int) bool { return newer[a].seq > newer[b].seq })
	older := append([]*sstable(nil), t.levels[lvl+1]...)
	sort.Slice(older, func(a, b int) bool { return older[a].seq > older[b].seq })
	sources := append(newer, older...)

	keys := make(map[string]struct{})
	for _, sst := range sources {
		for _, blk := range sst.blocks {
			for _, k := range blk.Keys {
				keys[k] = struct{}{}
			}
		}
	}

	merged := newMemTable()
	for key := range keys {
		winners := make(map[string]opKind)
		for _, sst := range sources {
			for v, op := range sst.get(key) {
				if _, seen := winners[v]; !seen {
					winners[v] = op
				}
			}
		}
		for v, op := range winners {
			if op == opAdd {
				merged.add(key, v)
			}
		}
	}

	t.levels[lvl] = nil
	if merged.entries == 0 {
		t.levels[lvl+1] = nil
		return t.saveManifest()
	}

	seq := t.nextSeq
	t.nextSeq++
	sst, err := flushMemTable(t.blobs, merged, seq, t.config.BloomFPR)
	if err != nil {
		return err
	}
	t.levels[lvl+1] = []*sstable{sst}

	t.log.Info().Int("level", lvl).Int("merged_keys", len(keys)).Msg("compacted level")
	return t.saveManifest()
}
