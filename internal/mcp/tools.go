package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameRun    = "incrkit_run"
	ToolNameReport = "incrkit_report"
	ToolNameStats  = "incrkit_stats"
)

// MaxPaths bounds the number of corpus paths one run may load.
const MaxPaths = 64

// Sentinel errors for tool input validation.
var (
	// ErrPathNotAbsolute indicates a corpus path is relative.
	ErrPathNotAbsolute = errors.New("paths must be absolute")
	// ErrTooManyPaths indicates more than MaxPaths paths were given.
	ErrTooManyPaths = errors.New("too many paths")

	errToolFailed = errors.New("tool returned an error result")
)

// RunInput is the input schema for the incrkit_run tool.
type RunInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"absolute corpus files or directories (default: synthetic corpus)"`
	Seed  uint64   `json:"seed,omitempty"  jsonschema:"seed for the synthetic corpus and edit sequence"`
}

// ReportInput is the input schema for the incrkit_report tool.
type ReportInput struct {
	CountersOnly bool `json:"counters_only,omitempty" jsonschema:"omit the trace log and the comment wrapper"`
}

// StatsInput is the input schema for the incrkit_stats tool.
type StatsInput struct{}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func textResult(text string) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: text}, nil
}

func validatePaths(paths []string) error {
	if len(paths) > MaxPaths {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyPaths, len(paths), MaxPaths)
	}

	for _, p := range paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%w: %q", ErrPathNotAbsolute, p)
		}
	}

	return nil
}

func (s *Server) handleRun(ctx context.Context, _ *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePaths(input.Paths)
	if err != nil {
		return errorResult(err)
	}

	sum, err := s.session.Run(ctx, input.Paths, input.Seed)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(sum)
}

func (s *Server) handleReport(_ context.Context, _ *mcpsdk.CallToolRequest, input ReportInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	text, err := s.session.Report(input.CountersOnly)
	if err != nil {
		return errorResult(err)
	}

	return textResult(text)
}

func (s *Server) handleStats(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return jsonResult(s.session.Stats())
}
