package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show subscription and document summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sub, subErr := apiClient.Subscription().Get(ctx)
			docs, docsErr := apiClient.Documents().List(ctx, &client.ListOptions{PageSize: 100})

			byStage := map[string]int{}
			if docsErr == nil {
				for _, d := range docs.Data {
					byStage[d.Stage]++
				}
			}

			if getOutputFormat() != "table" {
				summary := map[string]interface{}{}
				if subErr == nil {
					summary["subscription"] = sub
				}
				if docsErr == nil {
					summary["documents"] = docs.TotalItems
					summary["documents_by_stage"] = byStage
				}
				return printOutput(summary)
			}

			fmt.Println("MindSpero")
			fmt.Println(strings.Repeat("=", 40))

			if subErr != nil {
				fmt.Printf("  Subscription:  (error: %v)\n", subErr)
			} else {
				fmt.Printf("  Tier:          %s\n", formatTier(sub.Tier, sub.CurrentTier))
				if sub.DaysRemaining != nil {
					fmt.Printf("  Remaining:     %s\n", formatDays(sub.DaysRemaining))
				}
				if sub.TrialAvailable {
					fmt.Println("  Trial:         available (mindspero subscription trial)")
				}
			}

			if docsErr != nil {
				fmt.Printf("  Documents:     (error: %v)\n", docsErr)
				return nil
			}
			fmt.Printf("  Documents:     %d", docs.TotalItems)
			if n := byStage[client.StageFailed]; n > 0 {
				fmt.Printf(" (%d failed)", n)
			}
			fmt.Println()
			fmt.Printf("  Audio ready:   %d\n", byStage[client.StageAudioReady])
			return nil
		},
	}
}
