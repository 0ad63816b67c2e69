// Package pipeline assembles the news and writing workflows from agent and
// tool steps.
//
// The news graph fetches feeds, keeps the articles matching the keywords,
// summarizes and reviews them, and loops back to an earlier stage until the
// review passes or the step cap is reached:
//
//	planner -> fetch -> scrape -> filter -> summarize -> review -> route
//	route -> planner | fetch | filter | summarize | report
//
// The writing graph assesses an IELTS writing task in a straight line:
//
//	knowledge_base -> preprocessing -> text_analysis -> analysis
//	-> feedback -> scoring -> paraphrasing -> report
//
// Both graphs share one state.State and write one <node>_response field per
// step. The formatted report ends up in report_response.
package pipeline
