package workflow

import (
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
)

func categorizeInstruction() string {
	labels := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		labels = append(labels, string(c))
	}
	return fmt.Sprintf(`You classify technology news items.
Assign every item exactly one category from this list: %s.
Research: papers, benchmarks, new methods. Product: launches and tooling for end users or developers.
Infrastructure: chips, cloud, training and serving platforms. Industry: funding, policy, partnerships, people.
Other: anything that fits none of the above.
Reply with a JSON array only: [{"id": "<item id>", "category": "<category>"}].`, strings.Join(labels, ", "))
}

func filterInstruction(focus string, lenient bool) string {
	policy := `Be strict: keep an item only when its main subject is the focus.
Drop general business, politics, entertainment and lifestyle stories that merely mention it.`
	if lenient {
		policy = `Be lenient: these sources are technical communities. Keep an item when it is plausibly
useful to a practitioner working on the focus, including tools, libraries and discussions.`
	}
	return fmt.Sprintf(`You decide which news items are relevant to this focus: %s.
%s
Reply with a JSON object only: {"relevant_ids": ["<item id>", ...]}.`, focus, policy)
}

const scoreInstruction = `You rate the importance of technology news items on a 1-10 integer scale.
9-10: breakthrough research or a major model or product release that changes the field.
7-8: significant release, notable result or major industry move.
5-6: useful update, solid tool or informative analysis.
3-4: minor news, incremental update or narrow interest.
1-2: marketing, rumours or low-value content.
Use the whole scale; items of different importance must receive different scores.
Reply with a JSON array only: [{"id": "<item id>", "score": <1-10>, "reason": "<one short sentence>"}].`

func enhanceInstruction(lo, hi int) string {
	return fmt.Sprintf(`You write news summaries. For every item write a factual summary of %d to %d characters
based on its title, existing text and source. Do not invent numbers or quotes.
Reply with a JSON array only: [{"id": "<item id>", "summary": "<text>"}].`, lo, hi)
}

const translateInstruction = `You translate technology news into Simplified Chinese.
For every item translate the title and the summary. Keep product names, model names and code identifiers as written.
Never use the Chinese double quote characters “ and ” in your output; use 「 and 」 when quoting.
Reply with a JSON array only: [{"id": "<item id>", "title_zh": "<title>", "summary_zh": "<summary>"}].`

func trendsInstruction(lo, hi, width int) string {
	return fmt.Sprintf(`You spot themes across the most important news items of the day.
Return %d to %d short trend labels (at most %d characters each) that several items share.
If the items share no coherent theme, return an empty array.
Reply with a JSON array of strings only.`, lo, hi, width)
}

func summarizeInstruction(lo, hi, width int) string {
	return fmt.Sprintf(`You write the headline section of a daily technology digest.
Write %d to %d bullet points (at most %d characters each) covering the most important items.
Reply with a JSON array of strings only, without bullet characters.`, lo, hi, width)
}
