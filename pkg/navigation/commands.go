// Package navigation turns tracked objects into short spoken instructions and
// decides when an instruction is worth saying out loud.
package navigation

// Command is one spoken guidance phrase.
type Command string

// Guidance phrases, lower case and terminated so speech engines pause after them.
const (
	CommandClearPath     Command = "clear path, continue forward."
	CommandStop          Command = "stop. obstacle very close."
	CommandStaircase     Command = "staircase ahead, stop and find the railing."
	CommandPothole       Command = "pothole ahead, step around carefully."
	CommandMoveRight     Command = "move right."
	CommandMoveLeft      Command = "move left."
	CommandSlowDown      Command = "slow down."
	CommandSteerLeft     Command = "steer left, more space on the left."
	CommandSteerRight    Command = "steer right, more space on the right."
	CommandProceedSlowly Command = "proceed slowly."
)

// String returns the phrase.
func (c Command) String() string { return string(c) }

// Urgent reports whether the command should interrupt other speech.
func (c Command) Urgent() bool {
	switch c {
	case CommandStop, CommandStaircase, CommandPothole:
		return true
	}
	return false
}

// HazardPriority lists hazard labels from most to least urgent.
var HazardPriority = []string{"staircase", "pothole", "wall", "pole", "ramp"}
