package constant

const (
	// QueryRewritePrecisionPrompt narrows the query toward exact terminology.
	QueryRewritePrecisionPrompt = `You are a search query optimizer.
Rewrite the user's question into a precise search query that matches the exact
terminology a technical document would use.

User question: "%s"

Rules:
1. Keep the user's language.
2. Remove filler words, keep domain terms.
3. Do NOT answer the question.
4. Respond with ONLY the rewritten query, no quotes.`

	// QueryRewriteRecallPrompt broadens the query for higher recall.
	QueryRewriteRecallPrompt = `You are a search query optimizer.
Rewrite the user's question into a broader search query that also covers
synonyms and related phrasings, so more relevant documents match.

User question: "%s"

Rules:
1. Keep the user's language.
2. Add 2-3 synonyms or related terms.
3. Do NOT answer the question.
4. Respond with ONLY the rewritten query, no quotes.`

	// HypotheticalDocumentPrompt asks for a HyDE passage: a short plausible
	// answer whose embedding stands in for the raw query at retrieval time.
	HypotheticalDocumentPrompt = `Write a short passage (3-5 sentences) that could plausibly appear in a
document answering the question below. Write it as if it were an excerpt from
that document, not as a reply to the user. Match the user's language.

Question: "%s"

Respond with ONLY the passage.`
)
