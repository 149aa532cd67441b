package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/cobra"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents", "doc"},
		Short:   "Upload and manage PDF documents",
	}

	cmd.AddCommand(newDocsUploadCmd())
	cmd.AddCommand(newDocsListCmd())
	cmd.AddCommand(newDocsGetCmd())
	cmd.AddCommand(newDocsDeleteCmd())
	cmd.AddCommand(newDocsRetryCmd())
	cmd.AddCommand(newDocsSummaryCmd())
	cmd.AddCommand(newDocsAudioCmd())
	cmd.AddCommand(newDocsEntitlementsCmd())

	return cmd
}

func newDocsUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF for summarization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := apiClient.Documents().Upload(context.Background(), filepath.Base(args[0]), f)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(doc)
			}
			fmt.Printf("Uploaded %s (%s)\n", doc.DisplayName, formatBytes(doc.SizeBytes))
			fmt.Printf("ID: %s\n", doc.ID)
			fmt.Println("The summary will be ready shortly. Check with: mindspero docs get " + doc.ID)
			return nil
		},
	}
}

func newDocsListCmd() *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := apiClient.Documents().List(context.Background(), &client.ListOptions{
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(docs)
			}

			if len(docs.Data) == 0 {
				fmt.Println("No documents uploaded yet")
				return nil
			}

			t := NewTable("ID", "NAME", "SIZE", "STAGE", "UPLOADED")
			for _, d := range docs.Data {
				t.AddRow(
					d.ID,
					truncate(d.DisplayName, 40),
					formatBytes(d.SizeBytes),
					formatStage(d.Stage),
					d.UploadedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			t.Render()
			if docs.TotalPages > 1 {
				fmt.Printf("\nPage %d of %d (%d documents)\n", docs.Page, docs.TotalPages, docs.TotalItems)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "items per page")

	return cmd
}

func newDocsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := apiClient.Documents().Get(context.Background(), args[0])
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(doc)
			}
			printDocument(doc)
			return nil
		},
	}
}

func newDocsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its summary and audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				answer := promptInput(fmt.Sprintf("Delete document %s? [y/N]: ", args[0]))
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					fmt.Println("Aborted")
					return nil
				}
			}

			if err := apiClient.Documents().Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Document %s deleted\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}

func newDocsRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a failed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := apiClient.Documents().Retry(context.Background(), args[0])
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(doc)
			}
			fmt.Printf("Document %s is now %s\n", doc.ID, formatStage(doc.Stage))
			return nil
		},
	}
}

func newDocsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Print a document's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := apiClient.Documents().Summary(context.Background(), args[0])
			if err != nil {
				return deniedHint(err)
			}
			if getOutputFormat() != "table" {
				return printOutput(summary)
			}
			fmt.Println(summary.Summary)
			return nil
		},
	}
}

func newDocsAudioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Audio explanation commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate <id>",
		Short: "Request an audio explanation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := apiClient.Documents().GenerateAudio(context.Background(), args[0])
			if err != nil {
				return deniedHint(err)
			}
			if getOutputFormat() != "table" {
				return printOutput(doc)
			}
			fmt.Printf("Audio requested for %s (%s)\n", doc.DisplayName, formatStage(doc.Stage))
			return nil
		},
	})

	var out string
	download := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the audio explanation as MP3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := out
			if path == "" {
				path = args[0] + ".mp3"
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}

			n, err := apiClient.Documents().DownloadAudio(context.Background(), args[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(path)
				return deniedHint(err)
			}
			fmt.Printf("Saved %s (%s)\n", path, formatBytes(n))
			return nil
		},
	}
	download.Flags().StringVarP(&out, "out", "O", "", "output file (default <id>.mp3)")
	cmd.AddCommand(download)

	return cmd
}

func newDocsEntitlementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entitlements <id>",
		Short: "Show what you can do with a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ents, err := apiClient.Documents().Entitlements(context.Background(), args[0])
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(ents)
			}

			caps := make([]string, 0, len(ents.Decisions))
			for c := range ents.Decisions {
				caps = append(caps, c)
			}
			sort.Strings(caps)

			t := NewTable("CAPABILITY", "ALLOWED", "REASON")
			for _, c := range caps {
				d := ents.Decisions[c]
				allowed := "no"
				if d.Allowed {
					allowed = "yes"
				}
				t.AddRow(c, allowed, d.Reason)
			}
			t.Render()
			return nil
		},
	}
}

func printDocument(d *client.Document) {
	fmt.Printf("ID:        %s\n", d.ID)
	fmt.Printf("Name:      %s\n", d.DisplayName)
	fmt.Printf("Size:      %s\n", formatBytes(d.SizeBytes))
	fmt.Printf("Stage:     %s\n", formatStage(d.Stage))
	fmt.Printf("Summary:   %t\n", d.HasSummary)
	fmt.Printf("Audio:     %t\n", d.HasAudio)
	if d.FailureReason != "" {
		fmt.Printf("Failure:   %s\n", d.FailureReason)
	}
	fmt.Printf("Uploaded:  %s\n", d.UploadedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Updated:   %s\n", d.UpdatedAt.Local().Format("2006-01-02 15:04"))
}

// deniedHint adds a next step to entitlement denials
func deniedHint(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsDenied() {
		return err
	}
	switch apiErr.Code {
	case "REQUIRES_SUBSCRIPTION":
		return fmt.Errorf("%w\nStart a trial with: mindspero subscription trial", err)
	case "TRIAL_EXPIRED":
		return fmt.Errorf("%w\nSee plans with: mindspero subscription plans", err)
	case "DOCUMENT_NOT_READY":
		return fmt.Errorf("%w\nCheck progress with: mindspero docs get", err)
	}
	return err
}
