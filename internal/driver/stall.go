package driver

// Stalled reports whether a run has stopped making progress: the
// passing-story count is unchanged across the last threshold
// iterations of history. A threshold of zero or less disables the
// check, as does a history still shorter than the window.
func Stalled(history []int, threshold int) bool {
	if threshold <= 0 || len(history) < threshold {
		return false
	}

	recent := history[len(history)-threshold:]
	first := recent[0]
	for _, passing := range recent[1:] {
		if passing != first {
			return false
		}
	}
	return true
}
