package pipeline

import (
	_ "embed"
	"encoding/json"
	"time"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/agent"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
	"github.com/randalmurphal/feedgraph/pkg/report"
	"github.com/randalmurphal/feedgraph/pkg/writing"
)

// Writing pipeline nodes. The report node is shared with the news graph.
const (
	NodeKnowledgeBase = "knowledge_base"
	NodePreprocessing = "preprocessing"
	NodeTextAnalysis  = "text_analysis"
	NodeAnalysis      = "analysis"
	NodeFeedback      = "feedback"
	NodeScoring       = "scoring"
	NodeParaphrasing  = "paraphrasing"
)

// DefaultKnowledgeBase is the rubric used when no file is configured.
//
//go:embed knowledge_base.txt
var DefaultKnowledgeBase string

// WritingDeps are the collaborators of the writing graph.
type WritingDeps struct {
	// Client overrides the model client of the run Context.
	Client llm.Client
	Now    func() time.Time
}

// WritingSeed returns the initial state of a writing assessment.
func WritingSeed(text string, now time.Time) state.State {
	return state.New(map[string]any{
		FieldUserInput: text,
		FieldRunDate:   now.Format(time.DateTime),
	})
}

// WritingGraph builds and compiles the writing assessment pipeline.
func WritingGraph(cfg Settings, deps WritingDeps) (*flowgraph.CompiledGraph[state.State], error) {
	text := agent.Input{Var: "text", Key: Output(NodePreprocessing), Path: "text"}
	metrics := agent.Input{Var: "metrics", Key: Output(NodeTextAnalysis)}
	kb := agent.Input{Var: "knowledge_base", Key: Output(NodeKnowledgeBase), Path: "knowledge_base", Optional: true}
	asAgent := flowgraph.WithKind(flowgraph.KindAgent)

	step := func(name, system, prompt string, schema json.RawMessage, inputs ...agent.Input) flowgraph.NodeFunc[state.State] {
		return agent.New(agent.Spec{
			Name:   name,
			System: system,
			Prompt: prompt,
			Inputs: inputs,
			JSON:   true,
			Schema: schema,
			Client: deps.Client,
			Now:    deps.Now,
		})
	}

	return flowgraph.NewGraph[state.State]().
		SetReducer(state.Merge).
		AddNode(NodeKnowledgeBase, agent.Tool(NodeKnowledgeBase, Output(NodeKnowledgeBase), loadKnowledgeBase(cfg.Writing.KnowledgeBase))).
		AddNode(NodePreprocessing, agent.Tool(NodePreprocessing, Output(NodePreprocessing), preprocess)).
		AddNode(NodeTextAnalysis, agent.Tool(NodeTextAnalysis, Output(NodeTextAnalysis), analyzeText)).
		AddNode(NodeAnalysis, step(NodeAnalysis, analysisSystem, analysisUser, analysisSchema,
			text, metrics, kb), asAgent).
		AddNode(NodeFeedback, step(NodeFeedback, feedbackSystem, feedbackUser, feedbackSchema,
			text, metrics, agent.Input{Var: "analysis", Key: Output(NodeAnalysis)}, kb), asAgent).
		AddNode(NodeScoring, step(NodeScoring, scoringSystem, scoringUser, scoringSchema,
			metrics, agent.Input{Var: "analysis", Key: Output(NodeAnalysis)}, kb), asAgent).
		AddNode(NodeParaphrasing, step(NodeParaphrasing, paraphrasingSystem, paraphrasingUser, paraphrasingSchema,
			text, agent.Input{Var: "scores", Key: Output(NodeScoring)}, kb), asAgent).
		AddNode(NodeReport, agent.Tool(NodeReport, FieldReport, writingReport)).
		AddEdge(NodeKnowledgeBase, NodePreprocessing).
		AddEdge(NodePreprocessing, NodeTextAnalysis).
		AddEdge(NodeTextAnalysis, NodeAnalysis).
		AddEdge(NodeAnalysis, NodeFeedback).
		AddEdge(NodeFeedback, NodeScoring).
		AddEdge(NodeScoring, NodeParaphrasing).
		AddEdge(NodeParaphrasing, NodeReport).
		SetEntry(NodeKnowledgeBase).
		SetFinish(NodeReport).
		Compile()
}

type knowledgeBase struct {
	KnowledgeBase string `json:"knowledge_base"`
	Source        string `json:"source"`
}

func loadKnowledgeBase(path string) agent.ToolFunc {
	return func(ctx flowgraph.Context, _ state.State) (any, error) {
		if path == "" {
			return knowledgeBase{KnowledgeBase: DefaultKnowledgeBase, Source: "builtin"}, nil
		}
		text, err := writing.LoadKnowledgeBase(path)
		if err != nil {
			return nil, err
		}
		ctx.Logger().Info("loaded knowledge base", "path", path, "bytes", len(text))
		return knowledgeBase{KnowledgeBase: text, Source: path}, nil
	}
}

func preprocess(_ flowgraph.Context, s state.State) (any, error) {
	if !s.Has(FieldUserInput) {
		return nil, &agent.MissingInputError{Node: NodePreprocessing, Field: FieldUserInput}
	}
	return writing.Preprocess(s.String(FieldUserInput)), nil
}

func analyzeText(_ flowgraph.Context, s state.State) (any, error) {
	var p writing.Preprocessed
	if err := s.Decode(Output(NodePreprocessing), &p); err != nil {
		return nil, err
	}
	return writing.Analyze(p), nil
}

func writingReport(_ flowgraph.Context, s state.State) (any, error) {
	return report.Writing(s), nil
}
