package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fnord/internal/completion"
	"fnord/internal/convstore"
	"fnord/internal/indexer"
	"fnord/internal/logging"
)

var (
	askQuestion  string
	askRounds    int
	askFollow    string
	askFork      string
	askEdit      bool
	askDirectory string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question, driving the completion loop with tool access",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if askQuestion == "" {
			return fmt.Errorf("--question is required")
		}
		if askFollow != "" && askFork != "" {
			return fmt.Errorf("--follow and --fork are mutually exclusive")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		a.cfg.Execution.EditMode = askEdit

		proj, err := a.resolveProject(project, askDirectory, nil)
		if err != nil {
			return err
		}

		conv, err := a.loadOrCreateConversation(proj.Name, askFollow, askFork)
		if err != nil {
			return err
		}

		vecStore, err := a.vecStore(proj)
		if err != nil {
			return err
		}
		defer vecStore.Close()

		registry, _, err := a.registryFor(ctx, proj, vecStore)
		if err != nil {
			return err
		}

		pipeline, err := a.pipeline(ctx, proj)
		if err != nil {
			return err
		}
		ix := indexer.New(pipeline, func(status indexer.Status) {
			if status.InFlight != "" {
				a.ui().Log(logging.CategoryIndexer, fmt.Sprintf("indexing %s", status.InFlight))
			}
		})
		ix.Start(ctx)
		stopWatch, err := ix.Watch(proj.SourceRoot)
		if err != nil {
			a.ui().LogError(fmt.Sprintf("fsnotify watch failed, continuing without it: %v", err))
			stopWatch = func() {}
		}
		defer func() {
			ix.Stop()
			stopWatch()
		}()

		loop, err := a.loop(ctx, proj, registry)
		if err != nil {
			return err
		}
		if askRounds > 0 {
			loop.MaxRounds = askRounds
		}

		result, err := loop.Run(ctx, conv, askQuestion, nil)
		if err != nil {
			return err
		}
		if err := a.convs.Save(proj.Name, conv); err != nil {
			a.ui().LogError(fmt.Sprintf("failed to persist conversation: %v", err))
		}

		if len(result.Messages) > 0 {
			fmt.Println(result.Messages[len(result.Messages)-1].Content)
		}
		if result.Truncated {
			fmt.Fprintln(cmd.ErrOrStderr(), "(conversation hit its round limit without a final answer)")
		}
		return nil
	},
}

// loadOrCreateConversation implements ask's --follow/--fork selection, per
// spec.md §3: continued by id, or forked by copying history up to a point
// (the whole history here, since the CLI has no mid-conversation cursor).
func (a *app) loadOrCreateConversation(projectName, followID, forkID string) (*completion.Conversation, error) {
	switch {
	case followID != "":
		conv, err := a.convs.Load(projectName, followID)
		if err != nil {
			return nil, fmt.Errorf("load conversation %s: %w", followID, err)
		}
		return conv, nil
	case forkID != "":
		src, err := a.convs.Load(projectName, forkID)
		if err != nil {
			return nil, fmt.Errorf("load conversation %s: %w", forkID, err)
		}
		return convstore.Fork(src, -1), nil
	default:
		return convstore.New(), nil
	}
}

func init() {
	askCmd.Flags().StringVar(&askQuestion, "question", "", "the question to ask")
	askCmd.Flags().IntVar(&askRounds, "rounds", 0, "override the completion loop's max rounds")
	askCmd.Flags().StringVar(&askFollow, "follow", "", "continue an existing conversation by id")
	askCmd.Flags().StringVar(&askFork, "fork", "", "fork an existing conversation by id")
	askCmd.Flags().BoolVar(&askEdit, "edit", false, "enable the file-editing tool family for this session")
	askCmd.Flags().StringVar(&askDirectory, "directory", "", "project source directory (creates/updates the project record)")
}
