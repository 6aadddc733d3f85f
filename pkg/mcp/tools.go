package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

// Tool name constants.
const (
	ToolNameTopSeries = "chartfang_top_series"
	ToolNameOptions   = "chartfang_options"
)

// ErrNoBuilder indicates the server was started without a report builder.
var ErrNoBuilder = errors.New("chart pipeline is not configured")

// ReportBuilder runs one chart pipeline.
type ReportBuilder interface {
	Build(ctx context.Context, req report.Request) (*report.Report, error)
}

// TopSeriesInput is the input schema for the chartfang_top_series tool.
type TopSeriesInput struct {
	Username  string `json:"username"             jsonschema:"Last.fm username"`
	ChartType string `json:"chart_type,omitempty" jsonschema:"artist, album or track (default: artist)"`
	Timeframe string `json:"timeframe,omitempty"  jsonschema:"last-7-days, last-month, last-3-months, last-6-months, last-12-months or overall (default: last-6-months)"`
	Top       int    `json:"top,omitempty"        jsonschema:"number of positions per week (default: 20)"`
}

// OptionsInput is the input schema for the chartfang_options tool.
type OptionsInput struct{}

// Options lists accepted parameter values.
type Options struct {
	ChartTypes []lastfm.ChartKind    `json:"chart_types"`
	Timeframes []timeframe.Timeframe `json:"timeframes"`
	Top        []int                 `json:"top"`
	Labels     map[string]string     `json:"labels"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleTopSeries(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input TopSeriesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if s.builder == nil {
		return errorResult(ErrNoBuilder)
	}

	rep, err := s.builder.Build(ctx, report.Request{
		Subject:   input.Username,
		Kind:      lastfm.ChartKind(input.ChartType),
		Timeframe: timeframe.Timeframe(input.Timeframe),
		TopN:      input.Top,
	})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(rep)
}

func handleOptions(
	_ context.Context, _ *mcpsdk.CallToolRequest, _ OptionsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	opts := Options{
		ChartTypes: lastfm.Kinds(),
		Timeframes: timeframe.All(),
		Top:        report.TopChoices,
		Labels:     map[string]string{},
	}

	for _, k := range opts.ChartTypes {
		opts.Labels[string(k)] = k.Label()
	}

	for _, tf := range opts.Timeframes {
		opts.Labels[string(tf)] = tf.Label()
	}

	return jsonResult(opts)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
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
