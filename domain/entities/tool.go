package entities

// ToolCall is a request from the assistant to run a named local operation
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResponse answers a ToolCall. ID and Name are copied from the call.
type ToolResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ToolParamType is the JSON type of a tool parameter
type ToolParamType string

const (
	ToolParamString ToolParamType = "string"
	ToolParamNumber ToolParamType = "number"
)

// ToolParam describes one argument of a tool
type ToolParam struct {
	Name        string
	Type        ToolParamType
	Description string
	Required    bool
}

// ToolDefinition declares a tool the assistant may call
type ToolDefinition struct {
	Name        string
	Description string
	Params      []ToolParam
}
