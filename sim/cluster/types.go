package cluster

import "fmt"

// PlanetState is the synchronization state of a planet.
type PlanetState int

const (
	Running      PlanetState = iota // executing optimistically inside the window
	AwaitingSync                    // parked at the barrier
	RollingBack                     // restoring a checkpoint and replaying
	Halted                          // finished, stopped or failed
)

var planetStateNames = map[PlanetState]string{
	Running:      "Running",
	AwaitingSync: "AwaitingSync",
	RollingBack:  "RollingBack",
	Halted:       "Halted",
}

func (s PlanetState) String() string {
	if name, ok := planetStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlanetState(%d)", int(s))
}

// msgKey identifies a cross-planet message at its destination.
// Replays regenerate the same key for the same send.
type msgKey struct {
	planet int
	seq    uint64
}
