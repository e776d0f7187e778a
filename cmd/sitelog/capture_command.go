package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sitelog/internal/capture"
	"sitelog/internal/structuring"
	logsync "sitelog/internal/sync"
)

var audioMIMEByExt = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var siteID int64
	var text string
	var audioPath string
	var mimeType string
	var draft bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a site log from a voice memo or typed text",
		Long: "Capture runs a full log through the pipeline: the memo or text is\n" +
			"transcribed and structured against the selected site, the result is\n" +
			"shown for review, and the log is synced to every connected destination.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (text == "") == (audioPath == "") {
				return fmt.Errorf("provide exactly one of --text or --audio")
			}
			return ctx.withClient(func(client *apiClient) error {
				return runCapture(cmd, client, siteID, text, audioPath, mimeType, draft)
			})
		},
	}

	cmd.Flags().Int64Var(&siteID, "site", 0, "Site ID to log against")
	cmd.Flags().StringVar(&text, "text", "", "Typed log text instead of a voice memo")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Path to a recorded voice memo")
	cmd.Flags().StringVar(&mimeType, "mime", "", "Audio MIME type (detected from the extension when empty)")
	cmd.Flags().BoolVar(&draft, "draft", false, "Stop at review instead of submitting")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func runCapture(cmd *cobra.Command, client *apiClient, siteID int64, text, audioPath, mimeType string, draft bool) error {
	reqCtx := cmd.Context()
	out := cmd.OutOrStdout()

	var session capture.Snapshot
	if err := client.post(reqCtx, "/api/sessions", nil, &session); err != nil {
		return err
	}
	base := "/api/sessions/" + session.ID

	if err := client.post(reqCtx, base+"/site", map[string]int64{"site_id": siteID}, &session); err != nil {
		return err
	}
	fmt.Fprintf(out, "Capturing for %s\n", session.Site.Label())

	if text != "" {
		if err := client.post(reqCtx, base+"/text", map[string]string{"text": text}, &session); err != nil {
			return err
		}
	} else if err := uploadAudio(reqCtx, client, base, audioPath, mimeType, &session); err != nil {
		return err
	}

	fmt.Fprintln(out, "Processing...")
	if err := client.post(reqCtx, base+"/record", nil, &session); err != nil {
		return err
	}
	if session.Record == nil {
		return fmt.Errorf("processing finished without a structured record")
	}
	printRecord(cmd, session.Record)

	if draft {
		fmt.Fprintf(out, "\nLeft in review. Submit or discard with session %s\n", session.ID)
		return nil
	}

	var submitted struct {
		Session capture.Snapshot `json:"session"`
		Results []logsync.Result `json:"results"`
	}
	if err := client.post(reqCtx, base+"/submit", nil, &submitted); err != nil {
		return err
	}
	printResults(cmd, submitted.Results)
	return nil
}

func uploadAudio(ctx context.Context, client *apiClient, base, audioPath, mimeType string, session *capture.Snapshot) error {
	if mimeType == "" {
		ext := strings.ToLower(filepath.Ext(audioPath))
		detected, ok := audioMIMEByExt[ext]
		if !ok {
			return fmt.Errorf("cannot detect audio type for %q; pass --mime", audioPath)
		}
		mimeType = detected
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	return client.postRaw(ctx, base+"/audio", mimeType, audio, session)
}

func printRecord(cmd *cobra.Command, record *structuring.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nJob type: %s\n", record.JobType)
	fmt.Fprintf(out, "Summary:  %s\n", record.Summary)

	printSection := func(title string, entries []string) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(out, "%s:\n", title)
		for _, entry := range entries {
			fmt.Fprintf(out, "  - %s\n", entry)
		}
	}
	printSection("Work completed", record.WorkCompleted)
	printSection("Issues", record.Issues)
	printSection("Safety", record.Safety)
	printSection("Next steps", record.NextSteps)
	if len(record.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(record.Tags, ", "))
	}
}

func printResults(cmd *cobra.Command, results []logsync.Result) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "\nLog recorded. No destinations are connected.")
		return
	}
	fmt.Fprintln(out)
	colorize := shouldColorize(out)
	for _, result := range results {
		ok := result.Outcome != logsync.OutcomeFailed
		detail := string(result.Outcome)
		if result.Detail != "" {
			detail += ": " + result.Detail
		}
		fmt.Fprintln(out, statusLine(result.Destination, ok, detail, colorize))
	}
}
