package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"boardflow/internal/action"
	"boardflow/internal/app"
	"boardflow/internal/config"
	"boardflow/internal/db"
	"boardflow/internal/domain"
	"boardflow/internal/engine"
	"boardflow/internal/mail"
	"boardflow/internal/repo"
	"boardflow/internal/scheduler"
	"boardflow/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "bf",
	Short: "Boardflow CLI",
	Long: `Boardflow automates kanban boards with rules.
A rule has one trigger (when something happens on the board), optional
conditions (only if the card looks a certain way), and an ordered list of
actions (then do these things). Rules run automatically when events come
in; 'bf tick' synthesizes time-based events like due dates passing.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("BOARDFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(cardCmd())
	rootCmd.AddCommand(ruleCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(tickCmd())
	rootCmd.AddCommand(registryCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(outboxCmd())
	rootCmd.AddCommand(serveCmd())
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", cfgPath)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				fmt.Println("database ready at", db.Path(workspace))
				return nil
			})
		},
	}
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "board", Short: "Manage boards"}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a board with the default columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Engine.CreateBoard(ctx, name, nil)
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "board name")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				boards, err := a.Engine.Repo.ListBoards(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(boards)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Columns"})
				for _, b := range boards {
					labels := make([]string, 0, len(b.Columns))
					for _, c := range b.Columns {
						labels = append(labels, c.Label)
					}
					tw.AppendRow(table.Row{b.ID, b.Name, strings.Join(labels, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Engine.Repo.GetBoardData(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}

	cmd.AddCommand(create, list, show)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}

	var name, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.CreateUser(ctx, name, email)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "user name")
	create.Flags().StringVar(&email, "email", "", "user email")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				users, err := a.Engine.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email})
				}
				tw.Render()
				return nil
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func cardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "card", Short: "Manage cards"}
	cmd.AddCommand(cardCreateCmd())
	cmd.AddCommand(cardListCmd())
	cmd.AddCommand(cardShowCmd())
	cmd.AddCommand(cardMoveCmd())
	cmd.AddCommand(cardAssignCmd())
	cmd.AddCommand(cardTagCmd())
	cmd.AddCommand(cardArchiveCmd())
	return cmd
}

func cardCreateCmd() *cobra.Command {
	var boardID, title, description, column, priority, due string
	var assignees, tags []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var duePtr *string
				if due != "" {
					duePtr = &due
				}
				card, err := a.Engine.CreateCard(ctx, engine.CardCreateOptions{
					BoardID:     boardID,
					ColumnID:    column,
					Title:       title,
					Description: description,
					Priority:    priority,
					DueDate:     duePtr,
					AssigneeIDs: assignees,
					Tags:        tags,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(card)
			})
		},
	}
	cmd.Flags().StringVar(&boardID, "board", "", "board id")
	cmd.Flags().StringVar(&title, "title", "", "card title")
	cmd.Flags().StringVar(&description, "description", "", "card description")
	cmd.Flags().StringVar(&column, "column", "", "column id (defaults to the first column)")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	cmd.Flags().StringVar(&due, "due", "", "due date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "assignee user id (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func cardListCmd() *cobra.Command {
	var boardID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards on a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cards, err := a.Engine.Repo.ListCards(ctx, boardID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cards)
				}
				board, err := a.Engine.Repo.GetBoardData(ctx, boardID)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Column", "Priority", "Due", "Tags"})
				for _, c := range cards {
					due := ""
					if c.DueDate != nil {
						due = *c.DueDate
					}
					tw.AppendRow(table.Row{c.ID, c.Title, board.ColumnLabel(c.Status), c.Priority, due, strings.Join(c.Tags, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&boardID, "board", "", "board id")
	_ = cmd.MarkFlagRequired("board")
	return cmd
}

func cardShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				card, err := a.Engine.Repo.GetCardData(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(card)
			})
		},
	}
	return cmd
}

func cardMoveCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "move <card-id>",
		Short: "Move a card to a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.MoveCardTo(ctx, args[0], column, viper.GetString("actor-id")); err != nil {
					return err
				}
				card, err := a.Engine.Repo.GetCardData(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(card)
			})
		},
	}
	cmd.Flags().StringVar(&column, "to", "", "target column id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func cardAssignCmd() *cobra.Command {
	var userID string
	var remove bool
	cmd := &cobra.Command{
		Use:   "assign <card-id>",
		Short: "Assign or unassign a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor := viper.GetString("actor-id")
				var err error
				if remove {
					err = a.Engine.UnassignCard(ctx, args[0], userID, actor)
				} else {
					err = a.Engine.AssignCard(ctx, args[0], userID, actor)
				}
				if err != nil {
					return err
				}
				card, err := a.Engine.Repo.GetCardData(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(card)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().BoolVar(&remove, "remove", false, "unassign instead of assign")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func cardTagCmd() *cobra.Command {
	var tag string
	var remove bool
	cmd := &cobra.Command{
		Use:   "tag <card-id>",
		Short: "Add or remove a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor := viper.GetString("actor-id")
				var err error
				if remove {
					err = a.Engine.RemoveCardTag(ctx, args[0], tag, actor)
				} else {
					err = a.Engine.AddCardTag(ctx, args[0], tag, actor)
				}
				if err != nil {
					return err
				}
				card, err := a.Engine.Repo.GetCardData(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(card)
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "tag value")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove instead of add")
	_ = cmd.MarkFlagRequired("tag")
	return cmd
}

func cardArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <card-id>",
		Short: "Archive a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.ArchiveCardByID(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func ruleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rule", Short: "Manage automation rules"}

	var boardID, file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a rule from a JSON definition",
		Long:  `The definition file holds {"name","trigger","conditions","actions"}; use "-" to read stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readFileOrStdin(file)
			if err != nil {
				return err
			}
			var rule domain.Rule
			if err := json.Unmarshal(data, &rule); err != nil {
				return fmt.Errorf("parse rule definition: %w", err)
			}
			rule.BoardID = boardID
			rule.IsActive = true
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				created, err := a.Engine.CreateRule(ctx, rule)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	create.Flags().StringVar(&boardID, "board", "", "board id")
	create.Flags().StringVar(&file, "file", "-", "rule definition file (- for stdin)")
	_ = create.MarkFlagRequired("board")

	var listBoard string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rules for a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rules, err := a.Engine.Repo.ListRules(ctx, listBoard)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rules)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Trigger", "Actions", "Active", "Runs", "Last status"})
				for _, r := range rules {
					lastStatus := ""
					if r.LastRunStatus != nil {
						lastStatus = *r.LastRunStatus
					}
					tw.AppendRow(table.Row{r.ID, r.Name, r.Trigger.Type, len(r.Actions), r.IsActive, r.RunCount, lastStatus})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&listBoard, "board", "", "board id")
	_ = list.MarkFlagRequired("board")

	show := &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rule, err := a.Engine.Repo.GetRule(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rule)
			})
		},
	}

	enable := ruleToggleCmd("enable", true)
	disable := ruleToggleCmd("disable", false)

	cmd.AddCommand(create, list, show, enable, disable)
	return cmd
}

func ruleToggleCmd(name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <rule-id>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.SetRuleActive(ctx, args[0], active)
			})
		},
	}
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "runs", Short: "Inspect rule runs"}

	var ruleID, boardID string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List rule runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ruleID == "" && boardID == "" {
				return fmt.Errorf("one of --rule or --board is required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var runs []domain.RunResult
				var err error
				if ruleID != "" {
					runs, err = a.Engine.Repo.ListRuleRuns(ctx, ruleID, limit)
				} else {
					runs, err = a.Engine.Repo.ListBoardRuns(ctx, boardID, limit)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Run", "Rule", "Status", "OK", "Failed", "Ms", "At"})
				for _, r := range runs {
					tw.AppendRow(table.Row{r.RunID, r.RuleID, r.Status, r.ActionsSucceeded, r.ActionsFailed, r.DurationMs, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&ruleID, "rule", "", "rule id")
	list.Flags().StringVar(&boardID, "board", "", "board id")
	list.Flags().IntVar(&limit, "limit", 50, "max rows")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its action results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				run, err := a.Engine.Repo.GetRuleRun(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(run)
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "event", Short: "Work with board events"}

	var boardID, evtType, cardID, payloadJSON string
	emit := &cobra.Command{
		Use:   "emit",
		Short: "Inject a board event and evaluate rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload map[string]any
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("parse payload: %w", err)
				}
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				a.Engine.Dispatch(ctx, domain.BoardEvent{
					Type:        evtType,
					BoardID:     boardID,
					CardID:      cardID,
					Payload:     payload,
					TriggeredBy: viper.GetString("actor-id"),
				})
				fmt.Println("event dispatched")
				return nil
			})
		},
	}
	emit.Flags().StringVar(&boardID, "board", "", "board id")
	emit.Flags().StringVar(&evtType, "type", "", "event type")
	emit.Flags().StringVar(&cardID, "card", "", "card id")
	emit.Flags().StringVar(&payloadJSON, "payload", "", "payload as JSON object")
	_ = emit.MarkFlagRequired("board")
	_ = emit.MarkFlagRequired("type")

	cmd.AddCommand(emit)
	return cmd
}

func tickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass (due dates, stuck cards)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s := scheduler.New(a.Engine, a.Config, a.Logger)
				return s.Tick(ctx)
			})
		},
	}
}

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "registry", Short: "Inspect available trigger and action types"}

	triggers := &cobra.Command{
		Use:   "triggers",
		Short: "List trigger types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if viper.GetBool("json") {
					return printJSON(a.Engine.Triggers.Types())
				}
				for _, t := range a.Engine.Triggers.Types() {
					fmt.Println(t)
				}
				return nil
			})
		},
	}

	actions := &cobra.Command{
		Use:   "actions",
		Short: "List action types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				handlers := a.Engine.Actions.All()
				if viper.GetBool("json") {
					return printJSON(a.Engine.Actions.Types())
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Type", "Category", "Summary"})
				for _, h := range handlers {
					tw.AppendRow(table.Row{h.Type(), action.CategoryOf(h.Type()), h.Summarize(nil, nil)})
				}
				tw.Render()
				return nil
			})
		},
	}

	cmd.AddCommand(triggers, actions)
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				raw := make([]byte, 24)
				if _, err := rand.Read(raw); err != nil {
					return err
				}
				secret := "bfk_" + hex.EncodeToString(raw)
				key := domain.APIKey{
					ID:        uuid.NewString(),
					ActorID:   viper.GetString("actor-id"),
					Name:      name,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := a.Engine.Repo.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				// The secret is shown once and never stored in the clear.
				fmt.Println(secret)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key label")

	del := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Manage the email outbox",
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Deliver pending outbox emails over SMTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !a.Config.SMTPEnabled() {
					return fmt.Errorf("smtp is not configured: set smtp.host in boardflow.yml")
				}
				d := mail.Dispatcher{Repo: a.Engine.Repo, Logger: a.Logger, Send: mail.SMTPSender(a.Config)}
				sent, failed, err := d.Flush(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("sent %d, failed %d\n", sent, failed)
				return nil
			})
		},
	}

	cmd.AddCommand(flush)
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				secret := a.Config.Auth.JWTSecret
				if secret == "" {
					secret = os.Getenv("BOARDFLOW_JWT_SECRET")
				}
				if secret == "" {
					return fmt.Errorf("a JWT secret is required: set auth.jwt_secret or BOARDFLOW_JWT_SECRET")
				}
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: basePath,
					Auth: server.AuthConfig{
						JWTSecret:              secret,
						AllowLegacyActorHeader: a.Config.Auth.AllowLegacyActorHeader,
						Logger:                 a.Logger,
					},
				})
				if err != nil {
					return err
				}

				srvCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				if withScheduler {
					s := scheduler.New(a.Engine, a.Config, a.Logger)
					go s.Run(srvCtx)
				}
				if a.Config.SMTPEnabled() {
					d := mail.Dispatcher{Repo: a.Engine.Repo, Logger: a.Logger, Send: mail.SMTPSender(a.Config)}
					go d.Run(srvCtx, a.Config.MailFlushInterval())
				}

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-srvCtx.Done()
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Boardflow API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePathOrDefault(basePath))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&withScheduler, "scheduler", true, "run the scheduler loop alongside the server")
	return cmd
}

func basePathOrDefault(basePath string) string {
	if basePath == "" {
		return "/v0"
	}
	return basePath
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
