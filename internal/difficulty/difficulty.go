// Package difficulty implements the PoW rules of spec §4.8: difficulty
// recalculation, the median-timestamp check, and the pow-key schedule.
package difficulty

import (
	"math/big"
	"sort"

	"github.com/empower1/mpnchain/internal/types"
)

// clampFactor bounds how much the target can move in one retarget, the
// same ±4x guard Bitcoin-style chains use to damp oscillation.
const clampFactor = 4

// CalcPowDifficulty recomputes the target for the retarget boundary
// following last, given the previous retarget header lastRetarget.
// actualTimespan is last.Timestamp - lastRetarget.Timestamp; the target
// moves proportionally to actualTimespan/expectedTimespan, clamped to
// [1/4, 4] of the old target and floored at minimumDifficulty (the
// *highest* allowed target, i.e. the easiest permitted puzzle).
func CalcPowDifficulty(interval uint64, blockTime uint64, minimumDifficulty uint32, last, lastRetarget types.ProofOfWork) uint32 {
	expected := blockTime * interval
	if expected == 0 {
		expected = 1
	}
	actual := int64(last.Timestamp) - int64(lastRetarget.Timestamp)
	if actual <= 0 {
		actual = 1
	}
	minActual := int64(expected) / clampFactor
	maxActual := int64(expected) * clampFactor
	if actual < minActual {
		actual = minActual
	}
	if actual > maxActual {
		actual = maxActual
	}

	oldTarget := types.ExpandCompactTarget(lastRetarget.Target)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actual))
	newTarget.Div(newTarget, big.NewInt(int64(expected)))

	floor := types.ExpandCompactTarget(minimumDifficulty)
	if newTarget.Cmp(floor) > 0 {
		newTarget = floor
	}
	return types.CompactFromBig(newTarget)
}

// MedianTimestamp returns the median timestamp of the last count
// headers ending at (and including) height `upTo`, read via getHeader.
// Spec O4: equal timestamps are accepted by the caller (>=, not >).
func MedianTimestamp(upTo uint64, count int, getHeader func(uint64) (types.Header, error)) (uint64, error) {
	n := count
	if uint64(n) > upTo+1 {
		n = int(upTo + 1)
	}
	timestamps := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		h, err := getHeader(upTo - uint64(i))
		if err != nil {
			return 0, err
		}
		timestamps = append(timestamps, h.ProofOfWork.Timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps[len(timestamps)/2], nil
}

// PowKey implements the schedule from §4.8: the base key until
// changeDelay, then the hash of the most recent key-change checkpoint
// header.
func PowKey(n uint64, changeDelay, changeInterval uint64, baseKey []byte, getHeaderHash func(uint64) ([32]byte, error)) ([]byte, error) {
	if n < changeDelay {
		return baseKey, nil
	}
	checkpoint := ((n - changeDelay) / changeInterval) * changeInterval
	h, err := getHeaderHash(checkpoint)
	if err != nil {
		return nil, err
	}
	return h[:], nil
}
