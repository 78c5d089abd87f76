package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"gieditor/internal/config"
	"gieditor/internal/editor"
	"gieditor/internal/sysex"
)

// mcpParam is the JSON shape of a parameter in tool results.
type mcpParam struct {
	Address     string   `json:"address"`
	Name        string   `json:"name"`
	Path        []string `json:"path,omitempty"`
	Size        int      `json:"size"`
	Value       *uint32  `json:"value,omitempty"`
	Blacklisted bool     `json:"blacklisted,omitempty"`
}

func toMCPParam(p editor.Param) mcpParam {
	out := mcpParam{
		Address:     sysex.FormatAddress(p.Addr),
		Name:        p.Name,
		Path:        p.Path,
		Size:        p.Size,
		Blacklisted: p.Blacklist,
	}
	if p.Known {
		v := p.Value
		out.Value = &v
	}
	return out
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(editor.Describe(err) + ": " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	asJson, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

func requireAddr(request mcp.CallToolRequest) (uint32, error) {
	s, err := request.RequireString("address")
	if err != nil {
		return 0, err
	}
	return sysex.ParseAddress(s)
}

// newMCPServer exposes the session as MCP tools.
func newMCPServer(sess *editor.Session, cfg config.Config) *server.MCPServer {
	s := server.NewMCPServer(
		"Juno-Gi Editor",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	addrArg := mcp.WithString("address", mcp.Required(),
		mcp.Description("Parameter address as 0x-prefixed hex (e.g., 0x10000011) or decimal."))
	classArg := mcp.WithString("class",
		mcp.Description("Optional class name selecting the enclosing block (e.g., Studio Set Part). Defaults to the top-level block."))

	describeMapTool := mcp.NewTool("gi_describe-map",
		mcp.WithDescription("Returns the Juno-Gi parameter map: every block with its address and number of values."),
		mcp.WithNumber("depth", mcp.Description("Nesting depth to expand; -1 lists every parameter. Defaults to 1.")),
	)
	s.AddTool(describeMapTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling describe map request.")
		var sb strings.Builder
		if err := sess.Tree.Outline(&sb, request.GetInt("depth", 1)); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(sb.String()), nil
	})

	describeTool := mcp.NewTool("gi_describe",
		mcp.WithDescription("Names a parameter and its enclosing blocks without talking to the device."),
		addrArg,
	)
	s.AddTool(describeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := sess.Describe(addr)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(toMCPParam(p))
	})

	getTool := mcp.NewTool("gi_get",
		mcp.WithDescription("Reads one parameter from the Juno-Gi."),
		addrArg,
	)
	s.AddTool(getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Println("[mcp] Handling get request for", sysex.FormatAddress(addr))
		p, err := sess.Get(addr)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(toMCPParam(p))
	})

	setTool := mcp.NewTool("gi_set",
		mcp.WithDescription("Writes one parameter to the Juno-Gi."),
		addrArg,
		mcp.WithNumber("value", mcp.Required(), mcp.Description("The raw parameter value.")),
	)
	s.AddTool(setTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, err := request.RequireInt("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if v < 0 {
			return mcp.NewToolResultError("value must not be negative"), nil
		}
		log.Println("[mcp] Handling set request for", sysex.FormatAddress(addr), "value:", v)
		p, err := sess.Set(addr, uint32(v))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(toMCPParam(p))
	})

	adjustTool := mcp.NewTool("gi_adjust",
		mcp.WithDescription("Adds a delta to one parameter, clamped to its range, and returns the value read back."),
		addrArg,
		mcp.WithNumber("delta", mcp.Required(), mcp.Description("Signed amount to add.")),
	)
	s.AddTool(adjustTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		delta, err := request.RequireInt("delta")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := sess.Adjust(addr, delta)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(toMCPParam(p))
	})

	fetchTool := mcp.NewTool("gi_fetch",
		mcp.WithDescription("Bulk-reads every parameter of the block containing an address."),
		addrArg,
		classArg,
	)
	s.AddTool(fetchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		class, err := sess.ClassByName(request.GetString("class", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Println("[mcp] Handling fetch request for", sysex.FormatAddress(addr))
		ps, err := sess.Fetch(class, addr)
		if err != nil {
			return toolError(err), nil
		}
		out := make([]mcpParam, len(ps))
		for i, p := range ps {
			out[i] = toMCPParam(p)
		}
		return jsonResult(out)
	})

	namesTool := mcp.NewTool("gi_patch-names",
		mcp.WithDescription("Lists the names of the user patches."),
	)
	s.AddTool(namesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling patch names request.")
		names, err := sess.PatchNames()
		if err != nil && names == nil {
			return toolError(err), nil
		}
		listed := make(map[int]string)
		for i, n := range names {
			if n != "" {
				listed[i+1] = n
			}
		}
		return jsonResult(listed)
	})

	copyTool := mcp.NewTool("gi_copy",
		mcp.WithDescription("Reads the block containing an address and pushes it onto the copy stack."),
		addrArg,
		classArg,
	)
	s.AddTool(copyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Println("[mcp] Handling copy request for", sysex.FormatAddress(addr))
		if err := sess.Copy(request.GetString("class", ""), addr); err != nil {
			return toolError(err), nil
		}
		return jsonResult(sess.Top())
	})

	pasteTool := mcp.NewTool("gi_paste",
		mcp.WithDescription("Writes the top of the copy stack to the block containing an address, verifies it and pops it."),
		addrArg,
		classArg,
	)
	s.AddTool(pasteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Println("[mcp] Handling paste request for", sysex.FormatAddress(addr))
		if err := sess.Paste(request.GetString("class", ""), addr); err != nil {
			return toolError(err), nil
		}
		return jsonResult(sess.Top())
	})

	layerTool := mcp.NewTool("gi_paste-layer",
		mcp.WithDescription("Writes one layer of the Live Set on top of the copy stack into one part of a Studio Set."),
		addrArg,
		mcp.WithNumber("layer", mcp.Required(), mcp.Description("Live Set layer (1-4).")),
		mcp.WithNumber("part", mcp.Required(), mcp.Description("Studio Set part (1-16).")),
	)
	s.AddTool(layerTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := requireAddr(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		layer, err := request.RequireInt("layer")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		part, err := request.RequireInt("part")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sess.PasteLayerToPart(addr, layer, part); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Layer %d pasted to part %d.", layer, part)), nil
	})

	flushTool := mcp.NewTool("gi_flush",
		mcp.WithDescription("Empties the copy stack."),
	)
	s.AddTool(flushTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess.Flush()
		return mcp.NewToolResultText("Copy stack flushed."), nil
	})

	fileArg := mcp.WithString("file", mcp.Required(), mcp.Description("Copy file name inside the snapshot directory; absolute paths and .. are rejected."))
	cmd := &commander{sess: sess, cfg: cfg}

	saveTool := mcp.NewTool("gi_save",
		mcp.WithDescription("Pops the top of the copy stack into a copy file."),
		fileArg,
	)
	s.AddTool(saveTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := request.RequireString("file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		path, err := cmd.localPath(file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sess.Save(path); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("Saved " + path + "."), nil
	})

	loadTool := mcp.NewTool("gi_load",
		mcp.WithDescription("Pushes a copy file onto the copy stack."),
		fileArg,
	)
	s.AddTool(loadTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := request.RequireString("file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		path, err := cmd.localPath(file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sess.Load(path); err != nil {
			return toolError(err), nil
		}
		return jsonResult(sess.Top())
	})

	statusTool := mcp.NewTool("gi_status",
		mcp.WithDescription("Returns transport counters, blacklisted addresses and the copy stack."),
	)
	s.AddTool(statusTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var blacklisted []string
		for _, a := range sess.Blacklisted() {
			blacklisted = append(blacklisted, sysex.FormatAddress(a))
		}
		return jsonResult(struct {
			Transport   any      `json:"transport"`
			Blacklisted []string `json:"blacklisted"`
			Stack       any      `json:"stack"`
		}{sess.Transport.Stats(), blacklisted, sess.Top()})
	})

	return s
}

func runMCP(sess *editor.Session, cfg config.Config) {
	s := newMCPServer(sess, cfg)

	log.Println("Starting Juno-Gi MCP server...")

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}
}
