package ai

const CommunitySummaryPrompt = `
# Task Context
You are a legal analyst describing a group of closely connected entities taken from court documents, contracts and statutes.

# Background Data
-- Community --
classification: %s
size: %d
heuristic_description: %s

-- Members --
%s

-- Relationships --
%s

# Detailed Task Description & Rules
- Write a short title (at most 8 words) that names what holds this group together.
- Write a summary of at most 80 words explaining who the central members are and how they relate.
- Only use the information given above. Do not infer, assume, or add external knowledge.
- Use third person and name entities explicitly.

# Output Formatting
Return a JSON object matching this schema and nothing else:
%s
`

// CommunitySummarySystemPrompt is sent as the system message for summary
// requests.
const CommunitySummarySystemPrompt = `You summarize legal knowledge graph communities. Answer with JSON only.`
