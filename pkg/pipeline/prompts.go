package pipeline

import "encoding/json"

// News pipeline prompts.
const (
	plannerSystem = `You plan the processing of RSS news feeds.
Current date and time: ${datetime}

Lay out the steps needed to fetch the feeds, keep the articles that match
the keywords, and summarize them. If a reviewer left feedback, adjust the
plan to address it.

Reviewer feedback:
${feedback}

Respond in JSON with the key "plan" (a list of steps).`
	plannerUser = "Begin planning the RSS feed processing tasks."

	summarizeSystem = `You summarize news articles.
Current date and time: ${datetime}

Write a short, factual summary for every article below. Keep the article
title exactly as given.

Articles:
${articles}

Reviewer feedback to address, if any:
${feedback}

Respond in JSON: {"summaries": [{"title": "...", "link": "...", "summary": "..."}]}`
	summarizeUser = "Summarize the filtered RSS feed articles."

	reviewSystem = `You review article summaries for accuracy and relevance
to the keywords: ${keywords}
Current date and time: ${datetime}

Summaries:
${summaries}

Judge every summary. A summary passes when it is accurate, clear and
relevant. Set the top-level "pass_review" to true only if every summary
passes, and explain what must change in "feedback".

Respond in JSON: {"reviews": [{"title": "...", "pass_review": true, "feedback": "..."}],
"pass_review": true, "feedback": "..."}`
	reviewUser = "Review the summarized articles for accuracy and relevance."

	routeSystem = `You route a news pipeline after a review.
Reviewer output:
${review}

Choose the stage that must run again to address the feedback:
- "planner" when the overall approach is wrong
- "fetch" when different or fresher articles are needed
- "filter" when the article selection is off-topic
- "summarize" when only the summaries need rework
- "report" when nothing needs to change

Respond in JSON: {"next_agent": "<stage>"}`
	routeUser = "Route the conversation based on the reviewer's feedback."
)

// Writing pipeline prompts.
const (
	analysisSystem = `You are an expert IELTS examiner. Analyze the text for
task achievement and coherence, using the knowledge base.

1. Task achievement: does the response address every part of the task,
   keep a clear position, and develop ideas with relevant examples?
2. Coherence and cohesion: is the information logically organized, with a
   clear progression of ideas and appropriate cohesive devices?

Text to analyze:
${text}

Text statistics:
${metrics}

Knowledge base:
${knowledge_base}

Give a score out of 9 and comments with examples from the text for each.`
	analysisUser = "Please provide your analysis."

	feedbackSystem = `As an IELTS writing expert, give detailed feedback on
the text, guided by the metrics, the analysis and the knowledge base. Cover grammar and
vocabulary, task achievement, coherence and cohesion, and overall style.

Text:
${text}

Text metrics:
${metrics}

Analysis results:
${analysis}

Knowledge base:
${knowledge_base}

Quote the text and make every suggestion actionable.`
	feedbackUser = "Please provide your detailed feedback."

	scoringSystem = `As an IELTS examiner, score the writing sample on task
achievement, coherence and cohesion, lexical resource, and grammatical
range and accuracy. Give each a score out of 9 with a short justification,
and an overall band score.

Text statistics:
${metrics}

Analysis results:
${analysis}

Knowledge base:
${knowledge_base}`
	scoringUser = "Please provide the IELTS writing score breakdown."

	paraphrasingSystem = `As an expert IELTS writer, rewrite the text to an
IELTS Band 8 standard while keeping its meaning. Address the weaknesses
shown by the scores and list the improvements you made for each criterion.

Original text:
${text}

Current scores:
${scores}

Knowledge base:
${knowledge_base}`
	paraphrasingUser = "Please provide the improved, Band 8 level paraphrased version."
)

func schema(s string) json.RawMessage { return json.RawMessage(s) }

const (
	bandScore  = `{"type": "number", "minimum": 0, "maximum": 9}`
	stringList = `{"type": "array", "items": {"type": "string"}}`
)

var (
	analysisSchema = schema(`{
  "type": "object",
  "properties": {
    "task_achievement": {"type": "object", "properties": {"score": ` + bandScore + `, "comments": {"type": "string"}}, "required": ["score", "comments"]},
    "coherence": {"type": "object", "properties": {"score": ` + bandScore + `, "comments": {"type": "string"}}, "required": ["score", "comments"]}
  },
  "required": ["task_achievement", "coherence"]
}`)

	feedbackSchema = schema(`{
  "type": "object",
  "properties": {
    "grammar_vocabulary": {"type": "object", "properties": {"strengths": ` + stringList + `, "weaknesses": ` + stringList + `, "suggestions": ` + stringList + `}, "required": ["strengths", "weaknesses", "suggestions"]},
    "task_achievement": {"type": "object", "properties": {"comments": {"type": "string"}, "suggestions": ` + stringList + `}, "required": ["comments", "suggestions"]},
    "coherence_cohesion": {"type": "object", "properties": {"comments": {"type": "string"}, "suggestions": ` + stringList + `}, "required": ["comments", "suggestions"]},
    "overall_feedback": {"type": "string"}
  },
  "required": ["grammar_vocabulary", "task_achievement", "coherence_cohesion", "overall_feedback"]
}`)

	scoringSchema = schema(`{
  "type": "object",
  "properties": {
    "task_achievement": {"type": "object", "properties": {"score": ` + bandScore + `, "justification": {"type": "string"}}, "required": ["score", "justification"]},
    "coherence_cohesion": {"type": "object", "properties": {"score": ` + bandScore + `, "justification": {"type": "string"}}, "required": ["score", "justification"]},
    "lexical_resource": {"type": "object", "properties": {"score": ` + bandScore + `, "justification": {"type": "string"}}, "required": ["score", "justification"]},
    "grammatical_range_accuracy": {"type": "object", "properties": {"score": ` + bandScore + `, "justification": {"type": "string"}}, "required": ["score", "justification"]},
    "overall_band_score": ` + bandScore + `
  },
  "required": ["task_achievement", "coherence_cohesion", "lexical_resource", "grammatical_range_accuracy", "overall_band_score"]
}`)

	paraphrasingSchema = schema(`{
  "type": "object",
  "properties": {
    "paraphrased_text": {"type": "string"},
    "improvements": {"type": "object", "properties": {"task_achievement": ` + stringList + `, "coherence_cohesion": ` + stringList + `, "lexical_resource": ` + stringList + `, "grammatical_range_accuracy": ` + stringList + `}},
    "overall_comments": {"type": "string"}
  },
  "required": ["paraphrased_text", "improvements", "overall_comments"]
}`)

	routeSchema = schema(`{
  "type": "object",
  "properties": {"next_agent": {"type": "string", "enum": ["planner", "fetch", "filter", "summarize", "report"]}},
  "required": ["next_agent"]
}`)
)
