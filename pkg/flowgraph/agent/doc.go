/*
Package agent builds graph nodes over state.State: agent steps that render a
prompt and call a language model, tool steps that run plain functions, and
routers that pick the next node from a router step's output.

# Agent Steps

	summarize := agent.New(agent.Spec{
	    Name:   "summarize",
	    System: prompts.Summarize,
	    Prompt: "Articles:\n${articles}\n\nReviewer feedback: ${feedback}",
	    Inputs: []agent.Input{
	        {Var: "articles", Key: "filter_response"},
	        {Var: "feedback", Key: "review_response", Path: "feedback", Optional: true},
	    },
	    JSON:  true,
	    Batch: &agent.Batch{Var: "articles", Key: "filtered_articles", Size: 5, Concurrency: 3},
	})

A required input that is absent or empty fails the step with a
*MissingInputError. The rendered prompt is sent to the Spec's client or,
if none is set, the client on the flowgraph.Context. The result is appended
to the output field (Name + "_response" by default) as a message whose
role is the step name.

A failed model call does not fail the step. The error is logged and
recorded as {"error": "..."} in the output field, and the run continues.
Cancellation of the run context is the exception. In JSON mode, output
that cannot be parsed even after repair is passed through as raw text.

# Batching

With a Batch, the list at Batch.Key inside the Batch.Var input is split
into pages of Batch.Size items, one model call per page. Pages run
concurrently up to Batch.Concurrency. Page documents are merged in page
order: lists concatenate, strings join with newlines, booleans AND, other
values take the last page's value.

# Routing

Router reads the reviewer verdict first: a passing review routes to the
pass target whatever the router step said. Without a review, or with
unreadable router output, it returns "" so the edge's default applies.
*/
package agent
