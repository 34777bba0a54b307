// Command ductmcp exposes duct over the Model Context Protocol so an
// LLM agent can drive it the same way a human drives ductsh: one tool,
// run_pipeline, that builds a sequence of piped stages and runs them to
// completion.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/procduct/duct"
)

func main() {
	s := server.NewMCPServer("ductmcp", "0.1.0")

	tool := mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run a sequence of programs piped together (stage i's stdout feeds stage i+1's stdin) and return the combined exit status plus captured stdout/stderr."),
		mcp.WithArray("stages",
			mcp.Required(),
			mcp.Description(`Ordered pipeline stages, each {"program": string, "args": [string, ...]}`),
		),
	)
	s.AddTool(tool, runPipelineHandler)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintln(os.Stderr, "ductmcp:", err)
		os.Exit(1)
	}
}

type pipelineResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func runPipelineHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stages, err := parseStages(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pipeline := buildPipeline(stages).StdoutCapture().StderrCapture()

	out, err := pipeline.Run(ctx)
	var nonZero *duct.NonZeroExit
	if err != nil && !errors.As(err, &nonZero) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.Marshal(pipelineResult{
		ExitCode: out.Status.Code,
		Stdout:   string(out.Stdout),
		Stderr:   string(out.Stderr),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

type stage struct {
	program string
	args    []string
}

func parseStages(args map[string]any) ([]stage, error) {
	raw, ok := args["stages"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("stages must be a non-empty array of {program, args}")
	}

	stages := make([]stage, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("stages[%d]: expected an object", i)
		}
		program, ok := obj["program"].(string)
		if !ok || program == "" {
			return nil, fmt.Errorf("stages[%d]: program is required", i)
		}
		var stageArgs []string
		if rawArgs, ok := obj["args"].([]any); ok {
			for j, a := range rawArgs {
				s, ok := a.(string)
				if !ok {
					return nil, fmt.Errorf("stages[%d].args[%d]: expected a string", i, j)
				}
				stageArgs = append(stageArgs, s)
			}
		}
		stages = append(stages, stage{program: program, args: stageArgs})
	}
	return stages, nil
}

func buildPipeline(stages []stage) duct.Expression {
	var pipeline duct.Expression
	for i, s := range stages {
		e := duct.Cmd(s.program, s.args...)
		if i == 0 {
			pipeline = e
			continue
		}
		pipeline = pipeline.Pipe(e)
	}
	return pipeline
}
