package prompts

import _ "embed"

// Instructions is sent to MCP clients during initialization and tells the
// assistant how to use the task tools.
//
//go:embed instructions.md
var Instructions string
