package tick

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrUnalignedTick is returned when a flipped tick is not a multiple of the
// pool's tick spacing.
var ErrUnalignedTick = errors.New("tick: tick not aligned to spacing")

// Bitmap packs the initialized state of ticks into 256-bit words keyed by
// the compressed tick's upper bits.
type Bitmap struct {
	words map[int16]*uint256.Int
}

func NewBitmap() *Bitmap {
	return &Bitmap{words: make(map[int16]*uint256.Int)}
}

func bitmapPosition(compressed int32) (int16, uint) {
	return int16(compressed >> 8), uint(compressed & 255)
}

// FlipTick toggles the initialized bit for the given tick.
func (b *Bitmap) FlipTick(tick, tickSpacing int32) error {
	if tick%tickSpacing != 0 {
		return ErrUnalignedTick
	}
	wordPos, bitPos := bitmapPosition(tick / tickSpacing)
	word, ok := b.words[wordPos]
	if !ok {
		word = uint256.NewInt(0)
		b.words[wordPos] = word
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
	word.Xor(word, mask)
	return nil
}

// NextInitializedTickWithinOneWord scans at most one bitmap word from tick
// in the given direction and returns the nearest candidate tick plus whether
// it is actually initialized. When no initialized tick exists in the word,
// the boundary tick of the word is returned with initialized=false.
func (b *Bitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int32, lte bool) (int32, bool) {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}

	if lte {
		wordPos, bitPos := bitmapPosition(compressed)
		// All bits at or below bitPos.
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
		mask.Or(mask, new(uint256.Int).SubUint64(mask.Clone(), 1))
		masked := b.maskedWord(wordPos, mask)

		if !masked.IsZero() {
			msb := int32(masked.BitLen() - 1)
			return (compressed - (int32(bitPos) - msb)) * tickSpacing, true
		}
		return (compressed - int32(bitPos)) * tickSpacing, false
	}

	wordPos, bitPos := bitmapPosition(compressed + 1)
	// All bits at or above bitPos.
	mask := new(uint256.Int).Not(new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), bitPos), 1))
	masked := b.maskedWord(wordPos, mask)

	if !masked.IsZero() {
		lsb := int32(lowestSetBit(masked))
		return (compressed + 1 + (lsb - int32(bitPos))) * tickSpacing, true
	}
	return (compressed + 1 + (255 - int32(bitPos))) * tickSpacing, false
}

func (b *Bitmap) maskedWord(wordPos int16, mask *uint256.Int) *uint256.Int {
	word, ok := b.words[wordPos]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).And(word, mask)
}

func lowestSetBit(x *uint256.Int) uint {
	isolated := new(uint256.Int).And(x, new(uint256.Int).Neg(x))
	return uint(isolated.BitLen() - 1)
}
