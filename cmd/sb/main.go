package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stakeboard/internal/app"
	"stakeboard/internal/config"
	"stakeboard/internal/domain"
	"stakeboard/internal/engine"
	"stakeboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sb",
	Short: "Stakeboard CLI",
	Long: `Stakeboard tracks who asked for what and who is building it.
- People carry one or both roles: stakeholder (asks, owns requirements) and executor (builds).
- Tasks sit on a board: backlog -> todo -> inProgress -> review -> done.
- Requirements belong to exactly one stakeholder; removing the person removes them.
- Every create, edit and status change lands in the activity log, newest first.
State lives in the workspace backend configured in stakeboard.yml (sqlite by default).`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STAKEBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("backend", "", "storage backend override (memory, file, sqlite, redis)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(personCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(requirementCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(configCmd())
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if backend := viper.GetString("backend"); backend != "" {
		cfg.Storage.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withSession opens the workspace, runs fn and flushes the pending write
// before returning.
func withSession(ctx context.Context, fn func(context.Context, *app.Session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)
	s, err := app.Open(ctx, app.Options{Workspace: viper.GetString("workspace"), Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	fnErr := fn(ctx, s)
	if err := s.Close(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if !cmd.Flags().Changed("addr") && s.Config.Server.Addr != "" {
					addr = s.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && s.Config.Server.BasePath != "" {
					basePath = s.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{Store: s.Store, BasePath: basePath, Logger: s.Logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Stakeboard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func stateCmd() *cobra.Command {
	st := &cobra.Command{Use: "state", Short: "Inspect or replace the whole state"}
	st.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Summarise the current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				state := s.Store.State()
				if viper.GetBool("json") {
					return printJSON(state)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Column", "Tasks"})
				board := engine.TasksByStatus(state)
				for _, status := range domain.TaskStatuses {
					tw.AppendRow(table.Row{status, len(board[status])})
				}
				tw.AppendFooter(table.Row{"Total", len(state.Tasks)})
				tw.Render()
				fmt.Printf("people=%d requirements=%d activities=%d view=%s restored=%v\n",
					len(state.People), len(state.Requirements), len(state.Activities), state.ActiveView, s.Restored)
				return nil
			})
		},
	})
	st.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Replace the state with the sample dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, _ := s.Dispatch(engine.ResetState{})
				fmt.Printf("state reset: %d people, %d tasks, %d requirements\n", len(next.People), len(next.Tasks), len(next.Requirements))
				return nil
			})
		},
	})
	st.AddCommand(stateExportCmd())
	st.AddCommand(stateImportCmd())
	return st
}

func stateExportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if file == "" {
					return printJSON(s.Store.State())
				}
				data, err := json.MarshalIndent(s.Store.State(), "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(file, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "output path (stdout when empty)")
	return cmd
}

func stateImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the state from a JSON export",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var state domain.State
			if err := json.Unmarshal(data, &state); err != nil {
				return fmt.Errorf("invalid state file %s: %w", file, err)
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				s.Dispatch(engine.LoadState{State: state})
				fmt.Printf("imported %d people, %d tasks, %d requirements\n", len(state.People), len(state.Tasks), len(state.Requirements))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "state JSON path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func personCmd() *cobra.Command {
	p := &cobra.Command{Use: "person", Short: "Manage people"}
	p.AddCommand(personAddCmd())
	p.AddCommand(personListCmd())
	p.AddCommand(personUpdateCmd())
	p.AddCommand(personDeleteCmd())
	return p
}

func parseRoles(in []string) ([]domain.PersonRole, error) {
	out := make([]domain.PersonRole, 0, len(in))
	for _, r := range in {
		role := domain.PersonRole(strings.TrimSpace(r))
		if !domain.ValidRole(role) {
			return nil, fmt.Errorf("invalid person type %q (want stakeholder or executor)", r)
		}
		out = append(out, role)
	}
	return out, nil
}

func personAddCmd() *cobra.Command {
	var act engine.AddPerson
	var types []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person",
		RunE: func(cmd *cobra.Command, args []string) error {
			roles, err := parseRoles(types)
			if err != nil {
				return err
			}
			if len(roles) == 0 {
				return fmt.Errorf("--type required")
			}
			act.PersonType = roles
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, _ := s.Dispatch(act)
				return printJSONOrTable(next.People[len(next.People)-1])
			})
		},
	}
	cmd.Flags().StringVar(&act.Name, "name", "", "full name")
	cmd.Flags().StringVar(&act.Email, "email", "", "email")
	cmd.Flags().StringVar(&act.Avatar, "avatar", "", "avatar initials or URL")
	cmd.Flags().StringVar(&act.Role, "role", "", "job title")
	cmd.Flags().StringVar(&act.Company, "company", "", "company")
	cmd.Flags().StringSliceVar(&types, "type", nil, "stakeholder and/or executor")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func personListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List people",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				state := s.Store.State()
				people := state.People
				if role != "" {
					people = engine.PeopleByRole(state, domain.PersonRole(role))
				}
				if viper.GetBool("json") {
					return printJSON(people)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Company", "Type", "Requirements"})
				for _, p := range people {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Role, p.Company, joinRoles(p.PersonType), len(engine.RequirementsByStakeholder(state, p.ID))})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "filter by person type")
	return cmd
}

func personUpdateCmd() *cobra.Command {
	var name, email, avatar, role, company string
	var types []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch engine.PersonPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("email") {
				patch.Email = &email
			}
			if flags.Changed("avatar") {
				patch.Avatar = &avatar
			}
			if flags.Changed("role") {
				patch.Role = &role
			}
			if flags.Changed("company") {
				patch.Company = &company
			}
			if flags.Changed("type") {
				roles, err := parseRoles(types)
				if err != nil {
					return err
				}
				patch.PersonType = &roles
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, changed := s.Dispatch(engine.UpdatePerson{ID: args[0], Updates: patch})
				if !changed {
					return fmt.Errorf("person %s not found", args[0])
				}
				p, _ := engine.FindPerson(next, args[0])
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar")
	cmd.Flags().StringVar(&role, "role", "", "job title")
	cmd.Flags().StringVar(&company, "company", "", "company")
	cmd.Flags().StringSliceVar(&types, "type", nil, "stakeholder and/or executor")
	return cmd
}

func personDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a person, their requirements and task assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				owned := len(s.Store.RequirementsByStakeholder(args[0]))
				if _, changed := s.Dispatch(engine.DeletePerson{ID: args[0]}); !changed {
					return fmt.Errorf("person %s not found", args[0])
				}
				fmt.Printf("deleted %s (%d requirements removed)\n", args[0], owned)
				return nil
			})
		},
	}
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskAddCmd())
	t.AddCommand(taskListCmd())
	t.AddCommand(taskUpdateCmd())
	t.AddCommand(taskMoveCmd())
	t.AddCommand(taskDeleteCmd())
	return t
}

func taskAddCmd() *cobra.Command {
	var act engine.AddTask
	var status, priority string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				if !domain.ValidTaskStatus(domain.TaskStatus(status)) {
					return fmt.Errorf("invalid status %q", status)
				}
				act.Status = domain.TaskStatus(status)
			}
			if priority != "" {
				if !domain.ValidPriority(domain.Priority(priority)) {
					return fmt.Errorf("invalid priority %q", priority)
				}
				act.Priority = domain.Priority(priority)
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, _ := s.Dispatch(act)
				return printJSONOrTable(next.Tasks[len(next.Tasks)-1])
			})
		},
	}
	cmd.Flags().StringVar(&act.Title, "title", "", "task title")
	cmd.Flags().StringVar(&act.Description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "initial status (default backlog)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (default medium)")
	cmd.Flags().StringSliceVar(&act.StakeholderIDs, "stakeholder", nil, "stakeholder person ids")
	cmd.Flags().StringSliceVar(&act.ExecutorIDs, "executor", nil, "executor person ids")
	cmd.Flags().StringSliceVar(&act.RequirementIDs, "requirement", nil, "requirement ids")
	cmd.Flags().StringVar(&act.DueDate, "due", "", "due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var status, person, role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				state := s.Store.State()
				tasks := state.Tasks
				switch {
				case person != "" && role != "":
					tasks = engine.TasksByPerson(state, person, domain.PersonRole(role))
				case person != "":
					tasks = engine.TasksInvolving(state, person)
				}
				if status != "" {
					var filtered []domain.Task
					for _, t := range tasks {
						if t.Status == domain.TaskStatus(status) {
							filtered = append(filtered, t)
						}
					}
					tasks = filtered
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Stakeholders", "Executors", "Due"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, strings.Join(t.StakeholderIDs, ","), strings.Join(t.ExecutorIDs, ","), t.DueDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&person, "person", "", "only tasks naming this person")
	cmd.Flags().StringVar(&role, "role", "", "with --person: stakeholder or executor")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, due string
	var stakeholders, executors, requirements []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch engine.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				st := domain.TaskStatus(status)
				if !domain.ValidTaskStatus(st) {
					return fmt.Errorf("invalid status %q", status)
				}
				patch.Status = &st
			}
			if flags.Changed("priority") {
				p := domain.Priority(priority)
				if !domain.ValidPriority(p) {
					return fmt.Errorf("invalid priority %q", priority)
				}
				patch.Priority = &p
			}
			if flags.Changed("stakeholder") {
				patch.StakeholderIDs = &stakeholders
			}
			if flags.Changed("executor") {
				patch.ExecutorIDs = &executors
			}
			if flags.Changed("requirement") {
				patch.RequirementIDs = &requirements
			}
			if flags.Changed("due") {
				patch.DueDate = &due
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, changed := s.Dispatch(engine.UpdateTask{ID: args[0], Updates: patch})
				if !changed {
					return fmt.Errorf("task %s not found", args[0])
				}
				t, _ := engine.FindTask(next, args[0])
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringSliceVar(&stakeholders, "stakeholder", nil, "replace stakeholder ids")
	cmd.Flags().StringSliceVar(&executors, "executor", nil, "replace executor ids")
	cmd.Flags().StringSliceVar(&requirements, "requirement", nil, "replace requirement ids")
	cmd.Flags().StringVar(&due, "due", "", "due date")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another board column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.TaskStatus(args[1])
			if !domain.ValidTaskStatus(status) {
				return fmt.Errorf("invalid status %q", args[1])
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, _ := s.Dispatch(engine.MoveTask{ID: args[0], Status: status})
				t, ok := engine.FindTask(next, args[0])
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if _, changed := s.Dispatch(engine.DeleteTask{ID: args[0]}); !changed {
					return fmt.Errorf("task %s not found", args[0])
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func requirementCmd() *cobra.Command {
	r := &cobra.Command{Use: "requirement", Aliases: []string{"req"}, Short: "Manage stakeholder requirements"}
	r.AddCommand(requirementAddCmd())
	r.AddCommand(requirementListCmd())
	r.AddCommand(requirementUpdateCmd())
	r.AddCommand(requirementDeleteCmd())
	return r
}

func requirementAddCmd() *cobra.Command {
	var act engine.AddRequirement
	var status, priority string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a requirement for a stakeholder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				if !domain.ValidRequirementStatus(domain.RequirementStatus(status)) {
					return fmt.Errorf("invalid status %q", status)
				}
				act.Status = domain.RequirementStatus(status)
			}
			if priority != "" {
				if !domain.ValidPriority(domain.Priority(priority)) {
					return fmt.Errorf("invalid priority %q", priority)
				}
				act.Priority = domain.Priority(priority)
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, _, err := s.Store.DispatchIf(func(st domain.State) error {
					owner, ok := engine.FindPerson(st, act.StakeholderID)
					if !ok {
						return fmt.Errorf("person %s not found", act.StakeholderID)
					}
					if !owner.HasRole(domain.RoleStakeholder) {
						return fmt.Errorf("person %s is not a stakeholder", owner.ID)
					}
					return nil
				}, act)
				if err != nil {
					return err
				}
				return printJSONOrTable(next.Requirements[len(next.Requirements)-1])
			})
		},
	}
	cmd.Flags().StringVar(&act.Title, "title", "", "title")
	cmd.Flags().StringVar(&act.Description, "description", "", "description")
	cmd.Flags().StringVar(&act.StakeholderID, "stakeholder", "", "owning stakeholder id")
	cmd.Flags().StringVar(&status, "status", "", "status (default draft)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (default medium)")
	cmd.Flags().StringVar(&act.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("stakeholder")
	return cmd
}

func requirementListCmd() *cobra.Command {
	var stakeholder string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				state := s.Store.State()
				reqs := state.Requirements
				if stakeholder != "" {
					reqs = engine.RequirementsByStakeholder(state, stakeholder)
				}
				if viper.GetBool("json") {
					return printJSON(reqs)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Stakeholder"})
				for _, r := range reqs {
					owner := r.StakeholderID
					if p, ok := engine.FindPerson(state, r.StakeholderID); ok {
						owner = p.Name
					}
					tw.AppendRow(table.Row{r.ID, r.Title, r.Status, r.Priority, owner})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stakeholder, "stakeholder", "", "owning stakeholder id")
	return cmd
}

func requirementUpdateCmd() *cobra.Command {
	var title, description, status, priority, notes string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch engine.RequirementPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				st := domain.RequirementStatus(status)
				if !domain.ValidRequirementStatus(st) {
					return fmt.Errorf("invalid status %q", status)
				}
				patch.Status = &st
			}
			if flags.Changed("priority") {
				p := domain.Priority(priority)
				if !domain.ValidPriority(p) {
					return fmt.Errorf("invalid priority %q", priority)
				}
				patch.Priority = &p
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				next, changed := s.Dispatch(engine.UpdateRequirement{ID: args[0], Updates: patch})
				if !changed {
					return fmt.Errorf("requirement %s not found", args[0])
				}
				r, _ := engine.FindRequirement(next, args[0])
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func requirementDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a requirement and unlink it from tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if _, changed := s.Dispatch(engine.DeleteRequirement{ID: args[0]}); !changed {
					return fmt.Errorf("requirement %s not found", args[0])
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func activityCmd() *cobra.Command {
	a := &cobra.Command{Use: "activity", Short: "Activity log"}
	a.AddCommand(activityTailCmd())
	return a
}

func activityTailCmd() *cobra.Command {
	var n int
	var entityType, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := engine.ActivitiesFor(s.Store.State(), domain.EntityType(entityType), entityID, n)
				if viper.GetBool("json") {
					return printJSON(items)
				}
				for _, a := range items {
					fmt.Printf("%s %-15s %-11s %s: %s\n", a.CreatedAt, a.Type, a.EntityType, a.EntityTitle, a.Description)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 20, "number of entries")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "task, person or requirement")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	c.AddCommand(configInitCmd())
	c.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	return c
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default stakeboard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func joinRoles(roles []domain.PersonRole) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
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
