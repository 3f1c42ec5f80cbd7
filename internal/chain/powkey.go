package chain

import "github.com/empower1/mpnchain/internal/difficulty"

// powKeyFor adapts difficulty.PowKey to the engine's header store.
func powKeyFor(e *Engine, n uint64) ([]byte, error) {
	return difficulty.PowKey(n, e.cfg.PowKeyChangeDelay, e.cfg.PowKeyChangeInterval, e.cfg.PowBaseKey, func(h uint64) ([32]byte, error) {
		header, err := e.GetHeader(h)
		if err != nil {
			return [32]byte{}, err
		}
		return header.Hash(), nil
	})
}
