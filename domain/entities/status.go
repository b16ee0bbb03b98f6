package entities

// Status lines shown to the user by the session controller
const (
	StatusMissingKey   = "Please enter an API Key"
	StatusConnecting   = "Connecting..."
	StatusListening    = "Connected! Listening..."
	StatusDisconnected = "Disconnected"
	StatusStopped      = "Stopped"
)

// TranscriptRole says who produced a transcript line
type TranscriptRole string

const (
	TranscriptRoleAssistant TranscriptRole = "assistant"
	TranscriptRoleUser      TranscriptRole = "user"
)

// TranscriptEntry is one line of conversation text
type TranscriptEntry struct {
	Role TranscriptRole `json:"role"`
	Text string         `json:"text"`
}
