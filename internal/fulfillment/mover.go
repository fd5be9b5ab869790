package fulfillment

// moveResult records one applied transition. Drained holds the per-source
// breakdown in drain order, skipping sources that contributed nothing.
type moveResult struct {
	Moved   int64
	Drained []SourceState
}

// applyMove shifts up to count units into target, draining the target's
// source buckets in their fixed order. It mutates c in place and returns how
// much actually moved. A partial move is success; zero movement returns an
// InsufficientStockError snapshotting every source checked.
func applyMove(c *Counters, target Bucket, count int64) (moveResult, error) {
	sources := moveSources[target]
	remaining := count
	res := moveResult{}
	checked := make([]SourceState, 0, len(sources))

	for _, src := range sources {
		avail := c.get(src)
		checked = append(checked, SourceState{Bucket: src, Units: avail})
		if remaining <= 0 || avail <= 0 {
			continue
		}
		take := remaining
		if avail < take {
			take = avail
		}
		c.add(src, -take)
		c.add(target, take)
		res.Moved += take
		res.Drained = append(res.Drained, SourceState{Bucket: src, Units: take})
		remaining -= take
	}

	if res.Moved == 0 {
		return moveResult{}, &InsufficientStockError{
			LineID:    c.LineID,
			Target:    target,
			Requested: count,
			Sources:   checked,
		}
	}
	return res, nil
}
