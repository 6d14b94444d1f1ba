package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask_querybee MCP tool.
var askTool = mcp.NewTool("ask_querybee",
	mcp.WithDescription("Ask the college support agent a question. Returns the agent's reply, the matched intent, and whether the answer came from the knowledge base."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question, in English"),
	),
	mcp.WithString("session_id",
		mcp.Description("Conversation id; reuse it for follow-up questions. A new conversation is started when omitted."),
	),
)

// statusTool defines the querybee_status MCP tool.
var statusTool = mcp.NewTool("querybee_status",
	mcp.WithDescription("Report the relay's Dialogflow project, knowledge base, transport, and credential state."),
)
