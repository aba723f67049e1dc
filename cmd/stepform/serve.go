package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mark3labs/stepform/internal/formmcp"
	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	addr   string
	resume string
	stdio  bool
	output string
}

var serveCmd = &cobra.Command{
	Use:   "serve <form.yml>",
	Short: "Expose a form to an agent over MCP",
	Long: `Serve one form instance over the Model Context Protocol.

The tools form_state, set_values, next_step, previous_step, goto_step and
submit_form drive the same step state machine as the terminal wizard.
Valid submissions are printed to stdout.

By default the server speaks streamable HTTP on mcp_addr; --stdio serves on
stdin/stdout instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", "", "Listen address (default from config: 127.0.0.1:0)")
	serveCmd.Flags().StringVarP(&serveFlags.resume, "resume", "r", "", "Resume a recorded form instance")
	serveCmd.Flags().BoolVar(&serveFlags.stdio, "stdio", false, "Serve on stdin/stdout")
	serveCmd.Flags().StringVarP(&serveFlags.output, "output", "o", "yaml", "Payload format: yaml or json")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, args[0], serveFlags.resume)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Stdout carries the protocol in stdio mode, so payloads go to stderr.
	out := cmd.OutOrStdout()
	if serveFlags.stdio {
		out = cmd.ErrOrStderr()
	}
	onSubmit := func(ctx context.Context, values stepform.Values) error {
		hookOutput, err := sess.submitAction(ctx, values)
		if err != nil {
			return err
		}
		if hookOutput != "" {
			fmt.Fprint(cmd.ErrOrStderr(), hookOutput)
		}
		logger.Info("Form %s submitted", sess.inst.Form.Name)
		return writeValues(out, values, serveFlags.output)
	}

	srv := formmcp.New(sess.inst, sess.machine, onSubmit)
	if serveFlags.stdio {
		return server.ServeStdio(srv.MCPServer())
	}

	addr := serveFlags.addr
	if addr == "" {
		addr = cfg.MCPAddr
	}
	if _, err := srv.Start(ctx, addr); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s at %s\n", sess.inst.Form.Name, srv.URL())
	if id := sess.Instance(); id != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Instance: %s\n", id)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
