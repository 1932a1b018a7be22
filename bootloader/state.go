package bootloader

// State tracks the bootloader menu conversation.
type State int

const (
	// StateAwaitingPrompt: port open, menu not yet seen
	StateAwaitingPrompt State = iota

	// StateMenuDisplayed: version and menu lines consumed
	StateMenuDisplayed

	// StateUploadModeSelected: '1' sent and its echo consumed
	StateUploadModeSelected

	// StateReadyForData: the receiver asked for the first block
	StateReadyForData

	// StateTransferring: blocks are being sent
	StateTransferring

	// StateDone: image sent and run selected
	StateDone

	// StateFailed: the last Flash returned an error
	StateFailed
)

var stateNames = [...]string{
	StateAwaitingPrompt:     "awaiting prompt",
	StateMenuDisplayed:      "menu displayed",
	StateUploadModeSelected: "upload mode selected",
	StateReadyForData:       "ready for data",
	StateTransferring:       "transferring",
	StateDone:               "done",
	StateFailed:             "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
