// Package llm provides a retrying client for OpenAI-compatible chat
// completion endpoints along with tolerant JSON payload decoding.
package llm
