package match

import (
	"fmt"
	"path/filepath"
)

// Staging layout under the base dir, one subtree per contest:
//
//	{base}/{contest}/rooms/{roomID}   match working dir (bound rw)
//	{base}/{contest}/maps             map files (bound ro)
//	{base}/{contest}/codes/{teamID}   compiled team artifacts (bound ro)

func RoomDir(base, contestName, roomID string) string {
	return filepath.Join(base, contestName, "rooms", roomID)
}

func MapDir(base, contestName string) string {
	return filepath.Join(base, contestName, "maps")
}

func TeamCodeDir(base, contestName, teamID string) string {
	return filepath.Join(base, contestName, "codes", teamID)
}

// RunnerName derives the deterministic container name that doubles as
// the duplicate-in-flight guard.
func RunnerName(contestName, roomID string) string {
	return fmt.Sprintf("%s_runner_%s", contestName, roomID)
}
