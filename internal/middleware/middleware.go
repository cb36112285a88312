package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

func Logging(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (cr *mcp.CallToolResult, err error) {
		start := time.Now()

		l := logrus.WithFields(logrus.Fields{
			"session": sessionID(ctx),
			"tool":    req.Params.Name,
		})

		defer func() {
			duration := time.Since(start)
			if err != nil {
				l.WithField("duration", duration).Errorf("Tool call failed, %v", err)
			} else if cr != nil && cr.IsError {
				l.WithField("duration", duration).Warnf("Tool call returned an error result, %s", resultText(cr))
			} else {
				l.WithField("duration", duration).Info("Tool call completed")
			}
		}()

		return next(ctx, req)
	}
}

// Timeout bounds every tool call to d. A call that outlives its deadline is
// reported to the client as an error result.
func Timeout(d time.Duration) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if d <= 0 {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type outcome struct {
				result *mcp.CallToolResult
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				result, err := next(ctx, req)
				done <- outcome{result, err}
			}()

			select {
			case out := <-done:
				return out.result, out.err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return mcp.NewToolResultError("tool call timed out after " + d.String()), nil
				}
				return nil, ctx.Err()
			}
		}
	}
}

func sessionID(ctx context.Context) string {
	if s := server.ClientSessionFromContext(ctx); s != nil {
		return s.SessionID()
	}
	return ""
}

func resultText(cr *mcp.CallToolResult) string {
	for _, c := range cr.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return ""
}
