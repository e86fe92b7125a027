package llmmatch

import (
	"fmt"
	"strings"

	"corella/internal/ledger"
	"corella/internal/match"
)

// MatchSystemPrompt instructs the model to act as a record-linkage judge and
// respond with strict JSON.
const MatchSystemPrompt = `You are an expert at matching company records from websites to official business register entries.

Determine which candidate (if any) is the best match for the website company. Consider:
1. Company name similarity (accounting for variations like "Pty Ltd", "Limited", etc.)
2. Industry/business type alignment
3. Location/state consistency if available
4. Overall context from the website

Respond with JSON only, in this exact shape:
{"matched_abn": "12345678901", "confidence": 0.85, "reasoning": "Strong name match with location confirmation"}

If NONE of the candidates are a good match, respond with:
{"matched_abn": null, "confidence": 0.0, "reasoning": "No candidates match the website company"}`

func valueOrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func buildUserPrompt(observed *ledger.ObservedRecord, candidates []match.Candidate) string {
	var b strings.Builder

	b.WriteString("WEBSITE INFORMATION:\n")
	fmt.Fprintf(&b, "- URL: %s\n", valueOrNA(observed.SourceURL))
	fmt.Fprintf(&b, "- Company Name (from website): %s\n", valueOrNA(observed.Name))
	fmt.Fprintf(&b, "- Industry: %s\n", valueOrNA(observed.Industry))
	fmt.Fprintf(&b, "- Context: %s\n", valueOrNA(observed.Context))

	b.WriteString("\nCANDIDATES FROM BUSINESS REGISTER:\n")
	for i, candidate := range candidates {
		fmt.Fprintf(&b, "%d. ABN: %s\n", i+1, candidate.Entity.ABN)
		fmt.Fprintf(&b, "   Entity Name: %s\n", candidate.Entity.Name)
		fmt.Fprintf(&b, "   Type: %s\n", valueOrNA(candidate.Entity.Type))
		fmt.Fprintf(&b, "   State: %s\n", valueOrNA(candidate.Entity.State))
		fmt.Fprintf(&b, "   Address: %s\n", valueOrNA(truncate(candidate.Entity.Address, 100)))
		fmt.Fprintf(&b, "   Similarity Score: %.2f\n", candidate.Similarity)
	}

	return b.String()
}
