package controller

// Command is an action requested from the keyboard.
type Command int

const (
	// CommandNone continues to the next frame.
	CommandNone Command = iota
	// CommandQuit ends the loop.
	CommandQuit
	// CommandPause waits for any key.
	CommandPause
	// CommandSnapshot saves the displayed frame.
	CommandSnapshot
)

func (c Command) String() string {
	switch c {
	case CommandQuit:
		return "quit"
	case CommandPause:
		return "pause"
	case CommandSnapshot:
		return "snapshot"
	default:
		return "none"
	}
}

// KeyMap maps key codes to commands.
type KeyMap map[int]Command

// DetectionKeys maps q to quit, s to pause and p to snapshot, in either case.
var DetectionKeys = KeyMap{
	'q': CommandQuit, 'Q': CommandQuit,
	's': CommandPause, 'S': CommandPause,
	'p': CommandSnapshot, 'P': CommandSnapshot,
}

// ReplayKeys maps q to quit, space to pause and p to snapshot.
var ReplayKeys = KeyMap{
	'q': CommandQuit, 'Q': CommandQuit,
	' ': CommandPause,
	'p': CommandSnapshot, 'P': CommandSnapshot,
}

// Parse returns the command for a WaitKey result. Negative codes mean no key.
func (m KeyMap) Parse(key int) Command {
	if key < 0 {
		return CommandNone
	}
	return m[key&0xFF]
}
