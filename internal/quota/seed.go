package quota

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Seed derives the RNG seed of one draw. It depends only on its arguments, so a round can be
// replayed from the profile name, optimizer iteration, slot and attempt alone.
func Seed(profile string, iteration uint64, slot, attempt int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], iteration)
	binary.LittleEndian.PutUint64(buf[8:], uint64(slot))
	binary.LittleEndian.PutUint64(buf[16:], uint64(attempt))
	d := xxhash.New()
	_, _ = d.WriteString(profile)
	_, _ = d.Write(buf[:])
	return d.Sum64()
}
