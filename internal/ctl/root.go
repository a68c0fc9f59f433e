// Package ctl implements teamflowctl, the operator CLI: schema migrations,
// token issuance, payroll runs and retention cleanup.
package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/auth"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type cli struct {
	open       Opener
	configPath string
	cfg        *config.Config
	logger     logging.Logger
}

// NewRootCmd builds the command tree. open is called lazily by the
// commands that need storage.
func NewRootCmd(open Opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "teamflowctl",
		Short:         "Operator tool for the TeamFlow server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logging.New(cmd.ErrOrStderr(), "text", cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "JSON config file")

	root.AddCommand(c.migrateCmd(), c.tokenCmd(), c.payrollCmd(), c.rateCmd(), c.cleanupCmd())
	return root
}

// Execute runs the CLI against the real database.
func Execute() int {
	root := NewRootCmd(OpenDB)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// withBackend opens storage for the duration of fn.
func (c *cli) withBackend(ctx context.Context, fn func(b Backend) error) error {
	b, err := c.open(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn(ctx, "close backend", "error", cerr)
		}
	}()
	return fn(b)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd.Context(), func(b Backend) error {
				if err := b.Migrate(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{Use: "token", Short: "Access token operations"}

	var (
		userID int64
		role   string
		ttl    time.Duration
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be positive")
			}
			caps, err := auth.CapabilitiesForRole(role)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = c.cfg.AccessTokenValidityDuration
			}
			tok, err := auth.GenerateToken(userID, caps, []byte(c.cfg.SecretKey), ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issueCmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id (required)")
	issueCmd.Flags().StringVarP(&role, "role", "r", "team_member", "team_member, team_manager or administrator")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to the configured validity)")
	_ = issueCmd.MarkFlagRequired("user")
	tokenCmd.AddCommand(issueCmd)

	return tokenCmd
}

func (c *cli) payrollCmd() *cobra.Command {
	payrollCmd := &cobra.Command{Use: "payroll", Short: "Payroll runs"}

	var (
		userID     int64
		start, end string
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Compute and store payroll for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd.Context(), func(b Backend) error {
				generated, err := b.GeneratePayroll(cmd.Context(), userID, start, end)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, g := range generated {
					r := g.Record
					_, _ = fmt.Fprintf(w, "payroll %d user %d %s..%s hours %s gross %s net %s status %s recomputed %t\n",
						r.ID, r.UserID, r.PeriodStart.Format(time.DateOnly), r.PeriodEnd.Format(time.DateOnly),
						r.HoursWorked.StringFixed(2), r.GrossPay.StringFixed(2), r.NetPay.StringFixed(2), r.Status, g.Recomputed)
				}
				return nil
			})
		},
	}
	generateCmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id; 0 generates for every eligible user")
	generateCmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (required)")
	generateCmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (required)")
	_ = generateCmd.MarkFlagRequired("start")
	_ = generateCmd.MarkFlagRequired("end")

	var payrollID, processedBy int64
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Mark a pending payroll record as processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd.Context(), func(b Backend) error {
				if err := b.ProcessPayroll(cmd.Context(), payrollID, processedBy); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "payroll %d processed\n", payrollID)
				return nil
			})
		},
	}
	processCmd.Flags().Int64Var(&payrollID, "id", 0, "payroll record id (required)")
	processCmd.Flags().Int64Var(&processedBy, "by", 0, "user id recorded as processor (required)")
	_ = processCmd.MarkFlagRequired("id")
	_ = processCmd.MarkFlagRequired("by")

	var sumStart, sumEnd string
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print payroll totals as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd.Context(), func(b Backend) error {
				s, err := b.PayrollSummary(cmd.Context(), sumStart, sumEnd)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"total_records":    s.TotalRecords,
					"total_hours":      s.TotalHours.StringFixed(2),
					"total_gross":      s.TotalGross.StringFixed(2),
					"total_deductions": s.TotalDeductions.StringFixed(2),
					"total_net":        s.TotalNet.StringFixed(2),
					"pending_count":    s.PendingCount,
					"pending_amount":   s.PendingAmount.StringFixed(2),
				})
			})
		},
	}
	summaryCmd.Flags().StringVar(&sumStart, "start", "", "earliest period start, YYYY-MM-DD")
	summaryCmd.Flags().StringVar(&sumEnd, "end", "", "latest period end, YYYY-MM-DD")

	payrollCmd.AddCommand(generateCmd, processCmd, summaryCmd)
	return payrollCmd
}

func (c *cli) rateCmd() *cobra.Command {
	var (
		userID int64
		rate   string
	)
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Set a user's hourly rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("--rate: %w", err)
			}
			return c.withBackend(cmd.Context(), func(b Backend) error {
				if err := b.SetUserRate(cmd.Context(), userID, d); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %d rate %s\n", userID, d.Round(2).StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id (required)")
	cmd.Flags().StringVar(&rate, "rate", "", "hourly rate, e.g. 25.50 (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}

func (c *cli) cleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete completed entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = c.cfg.CleanupDays
			}
			return c.withBackend(cmd.Context(), func(b Backend) error {
				res, err := b.Cleanup(cmd.Context(), days)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries", res.Deleted)
				if res.ArchiveKey != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), ", archived to %s", res.ArchiveKey)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (defaults to the configured value)")
	return cmd
}
