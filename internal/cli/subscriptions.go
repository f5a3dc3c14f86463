package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/digitalbackpack/subtrack/internal/models"
)

// addOptions holds flags for the add command.
type addOptions struct {
	Name               string
	WebsiteURL         string
	Username           string
	Password           string
	Expiry             string
	Price              float64
	Currency           string
	RenewalPeriodDays  int
	ReminderDaysBefore int
	Notes              string
	Category           string
	NoReminder         bool
}

// NewAddCommand creates the "add" command.
func NewAddCommand(root *RootOptions) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry, err := time.ParseInLocation("2006-01-02", opts.Expiry, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --expiry %q, want YYYY-MM-DD: %w", opts.Expiry, err)
			}

			sub := &models.Subscription{
				ProjectName:        opts.Name,
				WebsiteURL:         opts.WebsiteURL,
				Username:           opts.Username,
				Password:           opts.Password,
				ExpiryDate:         expiry.UnixMilli(),
				Price:              opts.Price,
				Currency:           opts.Currency,
				RenewalPeriodDays:  opts.RenewalPeriodDays,
				ReminderDaysBefore: opts.ReminderDaysBefore,
				Notes:              opts.Notes,
				ReminderEnabled:    !opts.NoReminder,
				Category:           opts.Category,
			}

			return withApp(root, func(app *App) error {
				if err := app.Service.Create(sub); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added subscription %d (%s)\n", sub.ID, sub.ProjectName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&opts.WebsiteURL, "url", "", "project website URL")
	cmd.Flags().StringVar(&opts.Username, "username", "", "account username (stored encrypted)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (stored encrypted)")
	cmd.Flags().StringVar(&opts.Expiry, "expiry", "", "expiry date, YYYY-MM-DD (required)")
	cmd.Flags().Float64Var(&opts.Price, "price", 0, "subscription price")
	cmd.Flags().StringVar(&opts.Currency, "currency", "USD", "price currency")
	cmd.Flags().IntVar(&opts.RenewalPeriodDays, "renewal-days", 30, "renewal period in days")
	cmd.Flags().IntVar(&opts.ReminderDaysBefore, "remind-days", 1, "days before expiry to remind")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&opts.Category, "category", models.CategoryOther, "subscription category")
	cmd.Flags().BoolVar(&opts.NoReminder, "no-reminder", false, "disable the expiry reminder")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("expiry")

	return cmd
}

// NewListCommand creates the "list" command.
func NewListCommand(root *RootOptions) *cobra.Command {
	var category string
	var upcomingDays int
	var expired bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions ordered by expiry date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				var subs []*models.Subscription
				var err error
				switch {
				case expired:
					subs, err = app.Service.ListExpired()
				case upcomingDays > 0:
					subs, err = app.Service.ListUpcoming(upcomingDays)
				case category != "":
					subs, err = app.Service.ListByCategory(category)
				default:
					subs, err = app.Service.List()
				}
				if err != nil {
					return err
				}
				printSubscriptions(cmd, subs)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().IntVar(&upcomingDays, "upcoming", 0, "only subscriptions expiring within N days")
	cmd.Flags().BoolVar(&expired, "expired", false, "only expired subscriptions")

	return cmd
}

// NewShowCommand creates the "show" command.
func NewShowCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one subscription, credentials included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}

			return withApp(root, func(app *App) error {
				sub, err := app.Service.Get(id)
				if err != nil {
					return err
				}
				if sub == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "no subscription with id %d\n", id)
					return nil
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "id:        %d\n", sub.ID)
				fmt.Fprintf(out, "name:      %s\n", sub.ProjectName)
				if sub.WebsiteURL != "" {
					fmt.Fprintf(out, "url:       %s\n", sub.WebsiteURL)
				}
				fmt.Fprintf(out, "username:  %s\n", sub.Username)
				fmt.Fprintf(out, "password:  %s\n", sub.Password)
				if sub.CredentialsUnreadable {
					fmt.Fprintln(out, "warning:   credentials could not be decrypted; raw stored values shown")
				}
				fmt.Fprintf(out, "expires:   %s\n", time.UnixMilli(sub.ExpiryDate).Format("2006-01-02"))
				fmt.Fprintf(out, "price:     %.2f %s\n", sub.Price, sub.Currency)
				fmt.Fprintf(out, "renewal:   every %d days\n", sub.RenewalPeriodDays)
				fmt.Fprintf(out, "reminder:  %s\n", describeReminder(sub))
				fmt.Fprintf(out, "category:  %s\n", sub.Category)
				if sub.Notes != "" {
					fmt.Fprintf(out, "notes:     %s\n", sub.Notes)
				}
				return nil
			})
		},
	}
	return cmd
}

// NewSearchCommand creates the "search" command.
func NewSearchCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search subscriptions by project name or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				subs, err := app.Service.Search(args[0])
				if err != nil {
					return err
				}
				printSubscriptions(cmd, subs)
				return nil
			})
		},
	}
	return cmd
}

// NewRemoveCommand creates the "remove" command.
func NewRemoveCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a subscription and cancel its reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}

			return withApp(root, func(app *App) error {
				if err := app.Service.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed subscription %d\n", id)
				return nil
			})
		},
	}
	return cmd
}

func describeReminder(sub *models.Subscription) string {
	if !sub.ReminderEnabled {
		return "disabled"
	}
	return fmt.Sprintf("%d days before expiry", sub.ReminderDaysBefore)
}

func printSubscriptions(cmd *cobra.Command, subs []*models.Subscription) {
	out := cmd.OutOrStdout()
	if len(subs) == 0 {
		fmt.Fprintln(out, "no subscriptions")
		return
	}
	for _, sub := range subs {
		marker := ""
		if sub.CredentialsUnreadable {
			marker = " [credentials unreadable]"
		}
		fmt.Fprintf(out, "%4d  %-24s %10s  %8.2f %s  %s%s\n",
			sub.ID, sub.ProjectName,
			time.UnixMilli(sub.ExpiryDate).Format("2006-01-02"),
			sub.Price, sub.Currency, sub.Category, marker)
	}
	fmt.Fprintf(out, "%d subscription(s)\n", len(subs))
}
