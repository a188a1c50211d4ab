package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/journal"
	"github.com/pkordes/travel-journal/backend/internal/repo"
	"github.com/pkordes/travel-journal/backend/internal/service"
	"github.com/pkordes/travel-journal/backend/internal/store"
	"github.com/pkordes/travel-journal/backend/internal/tree"
)

const defaultStorePath = "./data/journals"

// app carries what every subcommand needs. The service is built lazily in
// PersistentPreRunE so flags and config are resolved first.
type app struct {
	v        *viper.Viper
	journals *service.JournalService
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "journal",
		Short:         "Inspect and edit travel journals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().String("store-path", defaultStorePath, "base directory of the journal disk store")
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("store_path", root.PersistentFlags().Lookup("store-path"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		a.showCommand(),
		a.opCommand(),
		a.selectCommand(),
		a.pageCommand(),
		a.deleteCommand(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("JOURNAL")
	a.v.AutomaticEnv()
	a.v.SetConfigName(".journal")
	a.v.AddConfigPath(".")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log_level"))); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := a.v.GetString("store_path")
	if path == "" {
		path = defaultStorePath
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	r := repo.NewJournalRepo(store.NewDiskStore(path), repo.WithLogger(logger))
	a.journals = service.NewJournalService(r, logger, nil)
	return nil
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <destination-id>",
		Short: "Print the journal tree and the current selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := destinationArg(args[0])
			if err != nil {
				return err
			}
			view, err := a.journals.Open(cmd.Context(), dest)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func (a *app) opCommand() *cobra.Command {
	var nodeID, title string
	kinds := make([]string, 0, len(journal.OpKinds()))
	for _, k := range journal.OpKinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:       "op <destination-id> <kind>",
		Short:     "Apply a structural edit to the journal tree",
		Long:      "Apply a structural edit. Kinds: " + strings.Join(kinds, ", ") + ".",
		Example:   "journal op 3f0c... add-section --title \"Week 1\"\njournal op 3f0c... indent --node 9a1b...",
		Args:      cobra.ExactArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := destinationArg(args[0])
			if err != nil {
				return err
			}
			op := journal.Op{Kind: journal.OpKind(args[1]), NodeID: nodeID, Title: title}
			view, res, err := a.journals.Apply(cmd.Context(), dest, op)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintln(out, "no change")
			}
			printView(out, view)
			return nil
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "node to act on (defaults to the selection)")
	cmd.Flags().StringVar(&title, "title", "", "title for add and rename")
	return cmd
}

func (a *app) selectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select <destination-id> [node-id]",
		Short: "Select a node, or clear the selection when no node is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := destinationArg(args[0])
			if err != nil {
				return err
			}
			nodeID := ""
			if len(args) == 2 {
				nodeID = args[1]
			}
			view, err := a.journals.Select(cmd.Context(), dest, nodeID)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func (a *app) pageCommand() *cobra.Command {
	page := &cobra.Command{
		Use:   "page",
		Short: "Read or write page content",
	}
	var html bool
	get := &cobra.Command{
		Use:   "get <destination-id> <page-id>",
		Short: "Print a page's formatted text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := destinationArg(args[0])
			if err != nil {
				return err
			}
			if html {
				text, err := a.journals.PageHTML(cmd.Context(), dest, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			content, err := a.journals.Page(cmd.Context(), dest, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", content.Title, content.FormattedText)
			return nil
		},
	}
	get.Flags().BoolVar(&html, "html", false, "print sanitized HTML")

	set := &cobra.Command{
		Use:   "set <destination-id> <page-id> <formatted-text>",
		Short: "Replace a page's formatted text",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := destinationArg(args[0])
			if err != nil {
				return err
			}
			return a.journals.SavePageContent(cmd.Context(), dest, args[1], args[2])
		},
	}
	page.AddCommand(get, set)
	return page
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <destination-id>",
		Short: "Delete a destination's journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := destinationArg(args[0])
			if err != nil {
				return err
			}
			return a.journals.Delete(cmd.Context(), dest)
		},
	}
}

// destinationArg checks that arg is a destination UUID. Journals are keyed by
// it on disk, so anything else is rejected before it reaches the store.
func destinationArg(arg string) (string, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("invalid destination id %q: %w", arg, err)
	}
	return id.String(), nil
}

// printView writes the tree indented by depth, marking the selection with
// "*", followed by the breadcrumb.
func printView(w io.Writer, view domain.JournalView) {
	doc := view.Document
	tree.Walk(doc.Tree, func(n domain.Node, depth int) {
		marker := " "
		if n.NodeID() == doc.SelectedID {
			marker = "*"
		}
		kind := "-"
		if n.Type() == domain.NodeTypeSection {
			kind = "+"
		}
		fmt.Fprintf(w, "%s %s%s %s  [%s]\n", marker, strings.Repeat("  ", depth), kind, n.NodeTitle(), n.NodeID())
	})
	if len(view.Breadcrumb) > 0 {
		fmt.Fprintf(w, "selected: %s\n", journal.BreadcrumbString(view.Breadcrumb))
	}
}
