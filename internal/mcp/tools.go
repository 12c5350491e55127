package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/report"
	"github.com/bobmcallan/markmentum-portal/internal/tapebias"
)

// RegisterTools adds every portal tool to s and returns how many were added.
func RegisterTools(s *server.MCPServer, src dashboard.Source, registry *report.Registry, logger *common.Logger) int {
	s.AddTool(TapeBiasTool(), TapeBiasToolHandler())
	s.AddTool(AsOfTool(), AsOfToolHandler(src, logger))
	s.AddTool(ModulesTool(), ModulesToolHandler(src, registry, logger))
	s.AddTool(VersionTool(), VersionToolHandler())
	return 4
}

// TapeBiasTool classifies trend levels and changes.
func TapeBiasTool() mcp.Tool {
	return mcp.NewTool("classify_tape_bias",
		mcp.WithDescription("Classify short, mid and long-term trend levels and the short and mid-term changes into a Tape Bias label."),
		mcp.WithNumber("st", mcp.Required(), mcp.Description("Short-term trend level")),
		mcp.WithNumber("mt", mcp.Required(), mcp.Description("Mid-term trend level")),
		mcp.WithNumber("lt", mcp.Required(), mcp.Description("Long-term trend level")),
		mcp.WithNumber("st_change", mcp.Required(), mcp.Description("Short-term trend change")),
		mcp.WithNumber("mt_change", mcp.Required(), mcp.Description("Mid-term trend change")),
	)
}

// TapeBiasToolHandler answers classify_tape_bias.
func TapeBiasToolHandler() server.ToolHandlerFunc {
	return func(_ context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := make([]float64, 5)
		for i, name := range []string{"st", "mt", "lt", "st_change", "mt_change"} {
			args[i] = r.GetFloat(name, math.NaN())
		}
		label := tapebias.Classify(args[0], args[1], args[2], args[3], args[4])
		return mcp.NewToolResultText(string(label)), nil
	}
}

// AsOfTool reports the as-of date of an artifact.
func AsOfTool() mcp.Tool {
	return mcp.NewTool("dataset_as_of",
		mcp.WithDescription("Return the as-of date and row count of a nightly artifact, by graph id or file name."),
		mcp.WithNumber("graph", mcp.Description("Numbered export id, e.g. 73 for qry_graph_data_73.csv")),
		mcp.WithString("file", mcp.Description("Fixed artifact file name, e.g. signal_box.csv")),
	)
}

type asOfResult struct {
	File  string `json:"file"`
	AsOf  string `json:"as_of"`
	Rows  int    `json:"rows"`
	Found bool   `json:"found"`
}

// AsOfToolHandler answers dataset_as_of.
func AsOfToolHandler(src dashboard.Source, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var (
			file string
			t    *data.Table
			err  error
		)
		switch {
		case r.GetInt("graph", 0) > 0:
			id := r.GetInt("graph", 0)
			file = data.GraphFile(id)
			t, err = src.Graph(ctx, id)
		case strings.HasSuffix(strings.ToLower(r.GetString("file", "")), ".csv"):
			file = r.GetString("file", "")
			if strings.ContainsAny(file, `/\`) {
				return errorResult("file must be a bare artifact name"), nil
			}
			t, err = src.Named(ctx, file)
		default:
			return errorResult("graph or a .csv file is required"), nil
		}
		if err != nil {
			logger.Warn().Str("file", file).Err(err).Msg("dataset_as_of load failed")
			return errorResult(fmt.Sprintf("failed to load %s", file)), nil
		}
		return jsonResult(asOfResult{File: file, AsOf: data.AsOf(t), Rows: t.Len(), Found: src.Exists(file)})
	}
}

// ModulesTool lists the Research Pack modules.
func ModulesTool() mcp.Tool {
	return mcp.NewTool("list_report_modules",
		mcp.WithDescription("List the Research Pack modules in pack order with their options and current data preview."),
	)
}

type moduleInfo struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Timeframes []string `json:"timeframes,omitempty"`
	Options    []string `json:"options,omitempty"`
	Default    bool     `json:"default"`
	Preview    string   `json:"preview,omitempty"`
}

// ModulesToolHandler answers list_report_modules.
func ModulesToolHandler(src dashboard.Source, registry *report.Registry, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rc := dashboard.NewContext(ctx, src, nil, logger)
		var out []moduleInfo
		for _, m := range registry.Modules() {
			form := m.Form()
			info := moduleInfo{
				Key:        m.Key(),
				Label:      m.Label(),
				Timeframes: form.Timeframes,
				Default:    slices.Contains(report.DefaultSelection, m.Key()),
				Preview:    m.Preview(rc, m.Configure(nil)),
			}
			for _, tg := range form.Toggles {
				info.Options = append(info.Options, tg.Name)
			}
			out = append(out, info)
		}
		return jsonResult(out)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to marshal result"), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
