package tools

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/tailabs/mcp-relay/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	maxFibonacciInput   = 100000
	fibonacciInputError = "Error: Input must be a non-negative integer"
)

var fibonacciRangeError = fmt.Sprintf("Error: Input must be at most %d", maxFibonacciInput)

func NewFibonacciTool() mcp.Tool {
	return mcp.NewTool(string(Fibonacci),
		mcp.WithDescription("Calculate the fibonacci number for a given input."),
		mcp.WithNumber("n",
			mcp.Required(),
			mcp.Min(0),
			mcp.Description("Index of the fibonacci number, starting at fib(0) = 0."),
		),
	)
}

func FibonacciHandler(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	n, err := request.RequireFloat("n")
	if err != nil {
		return "", err
	}
	if n < 0 || n != math.Trunc(n) {
		return fibonacciInputError, nil
	}
	if n > maxFibonacciInput {
		return fibonacciRangeError, nil
	}
	v, err := fib(ctx, int(n))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Fibonacci(%d) = %s", int(n), v.String()), nil
}

// fib gives up with ctx.Err() once ctx is done, checked every 1024 steps.
func fib(ctx context.Context, n int) (*big.Int, error) {
	a, b := big.NewInt(0), big.NewInt(1)
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a.Add(a, b)
		a, b = b, a
	}
	return a, nil
}

type FibonacciTool struct{}

func (t *FibonacciTool) GetTool() mcp.Tool {
	return NewFibonacciTool()
}

func (t *FibonacciTool) GetHandler() registry.Handler {
	return FibonacciHandler
}
