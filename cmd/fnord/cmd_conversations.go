package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsPrune int

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List or prune a project's saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if project == "" {
			return fmt.Errorf("--project is required")
		}
		a, err := newApp()
		if err != nil {
			return err
		}

		if conversationsPrune > 0 {
			removed, err := a.convs.Prune(project, conversationsPrune)
			if err != nil {
				return fmt.Errorf("prune conversations: %w", err)
			}
			fmt.Printf("pruned %d conversation(s) older than %d day(s)\n", removed, conversationsPrune)
			return nil
		}

		list, err := a.convs.List(project)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("no conversations")
			return nil
		}
		for _, c := range list {
			fmt.Printf("%s  %s  %d message(s)\n", c.ID, c.Timestamp.Format("2006-01-02 15:04:05"), c.Messages)
		}
		return nil
	},
}

func init() {
	conversationsCmd.Flags().IntVar(&conversationsPrune, "prune", 0, "delete conversations older than this many days")
}
