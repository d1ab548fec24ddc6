package feedback

import (
	"fmt"
	"strings"

	"github.com/abhisek/signcoach/internal/diagnosis"
)

const systemPrompt = `You are a friendly, expert road-safety instructor. A learner is practicing traffic sign recognition in a VR driving simulator and has just made a mistake.`

func isTimeout(answer string) bool {
	a := strings.TrimSpace(answer)
	return a == "" || strings.EqualFold(a, diagnosis.TimeoutMarker)
}

func buildUserMessage(req Request, language string) string {
	var b strings.Builder

	b.WriteString("Mistake context:\n")
	fmt.Fprintf(&b, "- Correct sign: %s\n", req.SignalName)
	if req.TimedOut() {
		b.WriteString("- The learner did not answer before time ran out\n")
		fmt.Fprintf(&b, "- Time available: %.1f seconds\n", req.Latency)
	} else {
		fmt.Fprintf(&b, "- Learner's answer: %s\n", req.Answer)
		fmt.Fprintf(&b, "- Response time: %.1f seconds\n", req.Latency)
	}
	fmt.Fprintf(&b, "- Difficulty: %s\n", req.Tier.DisplayName())
	fmt.Fprintf(&b, "- Zone: %d\n", req.Zone)
	fmt.Fprintf(&b, "- Previous attempts at this sign: %d\n", req.PriorAttempts)

	reason := fmt.Sprintf("the confusion between %q and %q", req.SignalName, req.Answer)
	if req.TimedOut() {
		reason = "not answering in time"
	}

	fmt.Fprintf(&b, `
Instructions:
Write an encouraging, educational note with exactly four parts, each at most two sentences:
1. meaning: what the sign %q means, clearly and simply.
2. error_reason: kindly explain what may have caused %s.
3. real_example: a concrete real-life situation where a driver meets this sign.
4. mnemonic: a trick or memorable phrase for remembering the sign.

Answer in %s.`, req.SignalName, reason, language)

	return b.String()
}
