package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"textCaptchaAuth/internal/tools"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve generate_captcha, verify_captcha and break_captcha as MCP tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("transport") {
			cfg.MCP.Transport = mcpTransport
		}
		if cmd.Flags().Changed("addr") {
			cfg.MCP.Addr = mcpAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := buildEngine(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer eng.close()

		s := tools.NewServer(tools.New(eng.challenges, eng.solver, logger.Named("tools")), version)

		switch cfg.MCP.Transport {
		case "stdio":
			logger.Info("serving MCP over stdio")
			stdio := server.NewStdioServer(s)
			stdio.SetErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))
			err := stdio.Listen(ctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case "sse":
			return serveSSE(ctx, s, cfg.MCP.Addr)
		default:
			return fmt.Errorf("unknown mcp transport %q", cfg.MCP.Transport)
		}
	},
}

func serveSSE(ctx context.Context, s *server.MCPServer, addr string) error {
	sse := server.NewSSEServer(s)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over SSE", zap.String("addr", addr))
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sse.Shutdown(shutdownCtx)
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "MCP transport: stdio or sse")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8000", "listen address for the sse transport")
}
