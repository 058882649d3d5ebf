package engine

// nextSequence allocates the next global sequence number. The value doubles
// as a microsecond wall-clock timestamp when the clock is ahead of the
// counter, and falls back to last+1 when it is not, so the sequence stays
// strictly increasing even across clock regressions.
//
// Callers must hold the write lock: the exclusive section is what makes
// sequence order equal write-acceptance order.
func (e *Engine) nextSequence() int64 {
	candidate := e.clock().UnixMicro()
	if candidate <= e.lastSeq {
		candidate = e.lastSeq + 1
	}
	e.lastSeq = candidate
	return candidate
}
