package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/meetsync/libs/config"
	"github.com/md-rashed-zaman/meetsync/libs/httpx"
)

func newPushCmd() *cobra.Command {
	var (
		baseURL string
		file    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send a rules request file to a running service",
		Long: `Posts a JSON body of the form
  {"event_id", "participant_id", "timezone", "mode", "rules": [...]}
to /api/v1/availability/rules and prints the response.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if !json.Valid(body) {
				return fmt.Errorf("%s is not valid JSON", file)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return pushRules(ctx, cmd.OutOrStdout(), baseURL, body)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", config.String("BASE_URL", "http://localhost:8086"), "availability service base url")
	cmd.Flags().StringVarP(&file, "file", "f", "", "request body file")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func pushRules(ctx context.Context, out io.Writer, baseURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/v1/availability/rules", bytes.NewReader(body))
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpx.RequestIDHeader, requestID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	fmt.Fprintf(out, "status=%d request_id=%s\n%s", resp.StatusCode, requestID, respBody)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("service returned %s", resp.Status)
	}
	return nil
}
