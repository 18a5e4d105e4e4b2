package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/Pjt727/homeroom/calsync"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "sync calendars once",
	Long: `Syncs calendars from the command line acting as the given user
(this command is not ran directly)`,
}

type userFlags struct {
	id    string
	email string
}

func getUserFlags(cmd *cobra.Command) (userFlags, error) {
	var u userFlags
	var err error
	if u.id, err = cmd.Flags().GetString("user"); err != nil {
		return u, err
	}
	if u.email, err = cmd.Flags().GetString("email"); err != nil {
		return u, err
	}
	if u.id == "" || u.email == "" {
		return u, errors.New("both --user and --email are required")
	}
	return u, nil
}

var syncStudentCmd = &cobra.Command{
	Use:   "student",
	Short: "Syncs the calendar of a single student",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := getUserFlags(cmd)
		if err != nil {
			return err
		}
		studentID, err := cmd.Flags().GetString("student")
		if err != nil {
			return err
		}
		if studentID == "" {
			return errors.New("--student is required")
		}

		ctx := cmd.Context()
		env, err := loadEnv(ctx, cmd)
		if err != nil {
			return err
		}
		defer env.close()

		student, err := env.orch.Student(ctx, u.id, u.email, studentID)
		if err != nil {
			return errors.New(calsync.UserMessage(err))
		}
		calendarID, err := env.orch.SyncStudent(ctx, u.id, u.email, student)
		if err != nil {
			return errors.New(calsync.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", student.Name, env.link(calendarID))
		return nil
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Syncs every student of the user and the combined calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := getUserFlags(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		env, err := loadEnv(ctx, cmd)
		if err != nil {
			return err
		}
		defer env.close()

		result, err := env.orch.SyncAll(ctx, u.id, u.email)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, s := range result.Students {
			if s.Err != nil {
				fmt.Fprintf(w, "%s\tFAILED\t%s\n", s.Student.Name, calsync.UserMessage(s.Err))
				continue
			}
			fmt.Fprintf(w, "%s\tOK\t%s\n", s.Student.Name, env.link(s.CalendarID))
		}
		if result.CalendarID != "" {
			fmt.Fprintf(w, "%s\tOK\t%s\n", calsync.CombinedCalendarName, env.link(result.CalendarID))
		}
		w.Flush()
		if err != nil {
			return errors.New(calsync.UserMessage(err))
		}
		return nil
	},
}

var syncPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Prints the events a sync would create without touching any calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := getUserFlags(cmd)
		if err != nil {
			return err
		}
		combined, err := cmd.Flags().GetBool("combined")
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		env, err := loadEnv(ctx, cmd)
		if err != nil {
			return err
		}
		defer env.close()

		previews, err := env.orch.Preview(ctx, u.id, u.email, combined)
		if err != nil {
			return errors.New(calsync.UserMessage(err))
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STUDENT\tEVENT\tDAY\tTIME\tFIRST\tLAST\tCOLOR")
		for _, p := range previews {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s-%s\t%s\t%s\t%s\n",
				p.Student.Name,
				p.Event.Summary,
				p.Event.Weekday,
				p.Schedule.Start,
				p.Schedule.End,
				p.Event.Start.Format("2006-01-02"),
				p.Event.Until.In(env.cfg.Location()).Format("2006-01-02"),
				p.Event.ColorID,
			)
		}
		return w.Flush()
	},
}

var syncResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Resyncs every family once, as the scheduled resync does",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer env.close()
		scheduler, err := newScheduler(env)
		if err != nil {
			return err
		}
		synced, failed := scheduler.RunOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d families, %d failed\n", synced, failed)
		if failed > 0 {
			return fmt.Errorf("%d families failed to resync", failed)
		}
		return nil
	},
}

func newScheduler(env *appEnv) (*calsync.Scheduler, error) {
	return calsync.NewScheduler(env.orch, env.store, env.cfg.ResyncCron, log.WithField("provider", env.cfg.Provider))
}

func init() {
	rootCmd.AddCommand(syncCmd)
	for _, c := range []*cobra.Command{syncStudentCmd, syncAllCmd, syncPreviewCmd} {
		c.Flags().String("user", "", "Id of the parent or co-teacher to act as")
		c.Flags().String("email", "", "Email of the user, co-teachers see students shared with this email")
		syncCmd.AddCommand(c)
	}
	syncCmd.AddCommand(syncResyncCmd)
	syncStudentCmd.Flags().String("student", "", "Id of the student to sync")
	syncPreviewCmd.Flags().Bool("combined", false, "Build events the way the combined calendar names them")
}
