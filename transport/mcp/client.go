package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/klotski/game/engine"
	"github.com/wricardo/klotski/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// NewClient creates a new MCP client that calls the REST API at baseURL. A
// nil logger uses slog.Default().
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Klotski",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Klotski - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Slide the 2x2 block (piece 0) to the bottom centre of the 5x4 board.

AVAILABLE TOOLS:
- create_session: Create a puzzle session from a layout
- list_sessions / get_session: Inspect sessions
- board_state: Show the occupancy grid, move count and playback status
- legal_moves: List every move currently allowed
- move_piece: Move one piece one cell (up/down/left/right)
- tap: Tap inside a piece's box; the tap position picks the direction
- reset: Restore the starting layout
- solve / hint / cancel: Drive the remote solver playback
- list_layouts: List starting layouts
- instructions: Full rules

NOTE: While a solve or hint is playing, any move or tap only cancels it.`),
	)

	c.registerTools()
}

func sessionSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Session ID",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"session_id"}, required...),
	}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session with optional layout selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout_id": map[string]interface{}{
					"type":        "string",
					"description": "Layout to start from (optional, see list_layouts)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionSchema(nil),
	}, c.handleGetSession)

	// Board
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Show the board as a grid of piece ids, with move count and playback status",
		InputSchema: sessionSchema(nil),
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "legal_moves",
		Description: "List the moves currently allowed",
		InputSchema: sessionSchema(nil),
	}, c.handleLegalMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_piece",
		Description: "Move one piece one cell in a direction",
		InputSchema: sessionSchema(map[string]interface{}{
			"piece_id": numberProp("Piece id (0-9)"),
			"direction": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"up", "down", "left", "right"},
				"description": "Direction to move",
			},
		}, "piece_id", "direction"),
	}, c.handleMovePiece)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tap",
		Description: "Tap at (x, y) inside a piece's width x height box; the nearest edge picks the direction",
		InputSchema: sessionSchema(map[string]interface{}{
			"piece_id": numberProp("Piece id (0-9)"),
			"x":        numberProp("Horizontal offset from the box's left edge"),
			"y":        numberProp("Vertical offset from the box's top edge"),
			"width":    numberProp("Box width"),
			"height":   numberProp("Box height"),
		}, "piece_id", "x", "y", "width", "height"),
	}, c.handleTap)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Cancel playback and restore the starting layout",
		InputSchema: sessionSchema(nil),
	}, c.handleReset)

	// Solver playback
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve",
		Description: "Ask the solver for a full solution and play it back move by move",
		InputSchema: sessionSchema(nil),
	}, c.playbackHandler("solve"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Ask the solver for one move and apply it",
		InputSchema: sessionSchema(nil),
	}, c.playbackHandler("hint"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel",
		Description: "Stop a running solve or hint",
		InputSchema: sessionSchema(nil),
	}, c.playbackHandler("cancel"))

	// Layouts
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_layouts",
		Description: "List available starting layouts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLayouts)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "instructions",
		Description: "Get the puzzle rules and tool usage",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server, used for stdio serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages over POST
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no reply
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api call failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + sessionID + suffix, nil
}

func numberArg(args map[string]interface{}, name string) (float64, error) {
	v, ok := args[name].(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func intArg(args map[string]interface{}, name string) (int, error) {
	v, err := numberArg(args, name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int(v), nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	layoutID, _ := args["layout_id"].(string)

	body := map[string]string{}
	if layoutID != "" {
		body["layout_id"] = layoutID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		moves := 0
		if s.State != nil && s.State.GameState != nil {
			moves = s.State.Moves
		}
		fmt.Fprintf(&sb, "- %s (Layout: %s, Moves: %d, Created: %s)\n",
			s.ID, s.LayoutName, moves, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state service.SessionState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionState(&state)), nil
}

func (c *Client) handleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/moves")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Count int           `json:"count"`
		Moves []engine.Move `json:"moves"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLegalMoves(response.Moves)), nil
}

func (c *Client) handleMovePiece(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pieceID, err := intArg(args, "piece_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction, _ := args["direction"].(string)

	body := map[string]interface{}{
		"piece_id":  pieceID,
		"direction": direction,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleTap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/tap")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tap service.TapRequest
	if tap.PieceID, err = intArg(args, "piece_id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for name, dst := range map[string]*float64{"x": &tap.X, "y": &tap.Y, "width": &tap.Width, "height": &tap.Height} {
		if *dst, err = numberArg(args, name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, tap, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string               `json:"message"`
		State   service.SessionState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n\n" + formatSessionState(&response.State)), nil
}

func (c *Client) playbackHandler(action string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := sessionPath(arguments(request), "/"+action)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result service.PlaybackResult
		if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text := fmt.Sprintf("%s\nPlayback: %s", result.Message, result.Status.State)
		if result.Status.Mode != "" {
			text += " (" + result.Status.Mode + ")"
		}
		if action != "cancel" {
			text += "\nMoves are applied in the background; call board_state to follow progress."
		}
		return mcp.NewToolResultText(text), nil
	}
}

func (c *Client) handleListLayouts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var layouts []service.LayoutInfo
	if err := c.apiCall(ctx, "GET", "/api/layouts", nil, &layouts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Available Layouts (%d):\n\n", len(layouts))
	for _, l := range layouts {
		fmt.Fprintf(&sb, "- %s: %s (%d pieces)", l.LayoutID, l.Name, l.Pieces)
		if l.Description != "" {
			sb.WriteString(" - " + l.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Klotski - Complete Instructions

BOARD:
5 rows by 4 columns. Row 0 is the top, column 0 the left. board_state prints
every cell as the id of the piece covering it, "." for an empty cell.

PIECES:
- large:      2x2, piece 0
- vertical:   2 tall, 1 wide
- horizontal: 1 tall, 2 wide
- tiny:       1x1

GOAL:
Move piece 0 so its top-left corner reaches row 3, column 1 (the exit at the

MOVES:
- A move shifts one piece exactly one cell up, down, left or right.
- The piece's new cells must be on the board and empty or already its own.
- An illegal move is reported as failed and changes nothing.
- legal_moves lists every allowed move for the current board.

TAP:
tap takes a point inside a piece's box. The point picks the direction of the
nearest box edge; the exact centre does nothing.

SOLVER:
- solve fetches a full solution and applies it one move every 650ms.
- hint fetches one move and applies it.
- While either runs, move_piece and tap only cancel the playback.
- cancel stops it explicitly; reset cancels and restores the start.`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLayout: %s\nCreated: %s\n\n%s",
		session.ID, session.LayoutName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSessionState(session.State))
}

func formatSessionState(state *service.SessionState) string {
	if state == nil || state.GameState == nil {
		return "No board state available"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Layout: %s | Moves: %d | Playback: %s\n\n", state.LayoutName, state.Moves, state.Playback.State)
	sb.WriteString(engine.RenderOccupancy(state.Occupancy))

	if state.Solved {
		fmt.Fprintf(&sb, "\nSOLVED in %d moves!", state.Moves)
	}
	return sb.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var sb strings.Builder
	switch {
	case result.CancelledPlayback:
		sb.WriteString("■ Playback cancelled, no move made\n")
	case result.Success:
		sb.WriteString("✓ Move successful\n")
	default:
		sb.WriteString("✗ Move failed\n")
	}

	if result.Message != "" {
		sb.WriteString(result.Message + "\n")
	}

	sb.WriteString("\n" + formatSessionState(result.State))
	return sb.String()
}

func formatLegalMoves(moves []engine.Move) string {
	if len(moves) == 0 {
		return "No legal moves"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Legal moves (%d):\n", len(moves))
	for _, m := range moves {
		fmt.Fprintf(&sb, "- piece %d %s\n", m.PieceID, m.Direction())
	}
	return sb.String()
}
