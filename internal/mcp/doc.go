// Package mcp exposes claim evaluation as MCP tools over stdio.
//
// Tools call the evaluation service in-process. Tool results carry verdicts
// and scores only; patient profiles sent in are never echoed back.
package mcp
