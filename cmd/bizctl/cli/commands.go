package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/bizledger/internal/ledger/export"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/jobs"
)

func newNextNumberCommand(rt func() *Runtime) *cobra.Command {
	var scope, invoiceType, date string
	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Preview the next invoice, payment credit or voucher number",
		Example: `  bizctl next-number --scope invoice --type B2B
  bizctl next-number --scope voucher --date 2025-04-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime := rt()
			if runtime.Numbers == nil {
				return errNotConfigured
			}
			var s sequence.Scope
			switch scope {
			case "invoice":
				s = sequence.InvoiceScope(invoiceType)
			case "credit":
				s = sequence.PaymentCreditScope()
			case "voucher":
				s = sequence.VoucherScope()
			default:
				return fmt.Errorf("unknown scope %q, use invoice, credit or voucher", scope)
			}
			var ref time.Time
			if date != "" {
				parsed, err := parseDay(date, runtime.Location)
				if err != nil {
					return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
				}
				ref = parsed
			}
			number, err := runtime.Numbers.Preview(cmd.Context(), s, ref)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (financial year %s)\n", number, number.Year.Label())
			return err
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "invoice", "Sequence scope: invoice, credit or voucher")
	cmd.Flags().StringVar(&invoiceType, "type", "B2B", "Invoice type for the invoice scope: B2B, B2C or EXPORT")
	cmd.Flags().StringVar(&date, "date", "", "Reference date (YYYY-MM-DD, default: today)")
	return cmd
}

func newLedgerCommand(rt func() *Runtime) *cobra.Command {
	var business, from, to, format string
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print a business ledger statement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime := rt()
			if runtime.Ledger == nil {
				return errNotConfigured
			}
			businessID, err := uuid.Parse(business)
			if err != nil {
				return fmt.Errorf("invalid --business: %w", err)
			}
			start, err := parseDay(from, runtime.Location)
			if err != nil {
				return fmt.Errorf("invalid --from, use YYYY-MM-DD: %w", err)
			}
			end, err := parseDay(to, runtime.Location)
			if err != nil {
				return fmt.Errorf("invalid --to, use YYYY-MM-DD: %w", err)
			}
			stmt, err := runtime.Ledger.BuildLedger(cmd.Context(), businessID, start, end)
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stmt)
			case "csv":
				return export.WriteLedgerCSV(cmd.OutOrStdout(), stmt)
			default:
				return fmt.Errorf("unknown format %q, use json or csv", format)
			}
		},
	}
	cmd.Flags().StringVar(&business, "business", "", "Business id")
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or csv")
	_ = cmd.MarkFlagRequired("business")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newIntegrityCommand(rt func() *Runtime) *cobra.Command {
	var enqueue bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Scan invoices for balance anomalies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime := rt()
			if enqueue {
				return trigger(cmd, runtime, jobs.TaskBalanceIntegrity)
			}
			if runtime.Integrity == nil {
				return errNotConfigured
			}
			anomalies, err := runtime.Integrity.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(anomalies) == 0 {
				_, err := fmt.Fprintln(out, "no anomalies found")
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INVOICE\tSTORED\tEXPECTED\tREASON")
			for _, a := range anomalies {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Number, a.Stored.StringFixed(2), a.Expected.StringFixed(2), a.Reason)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("%d invoice(s) with balance anomalies", len(anomalies))
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Enqueue the scan on the worker instead of running it here")
	return cmd
}

func newWarmCommand(rt func() *Runtime) *cobra.Command {
	var payload jobs.LedgerWarmPayload
	var business string
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Enqueue a ledger cache warm-up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime := rt()
			if runtime.Queue == nil {
				return errNotConfigured
			}
			id, err := uuid.Parse(business)
			if err != nil {
				return fmt.Errorf("invalid --business: %w", err)
			}
			payload.BusinessID = id
			info, err := runtime.Queue.EnqueueLedgerWarm(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printTask(cmd.OutOrStdout(), info.ID, info.Type)
		},
	}
	cmd.Flags().StringVar(&business, "business", "", "Business id")
	cmd.Flags().StringVar(&payload.Start, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&payload.End, "to", "", "End date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("business")
	return cmd
}

func newQueueCommand(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the job queue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show default queue counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime := rt()
			if runtime.Queue == nil {
				return errNotConfigured
			}
			stats, err := runtime.Queue.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return err
		},
	}, &cobra.Command{
		Use:   "cleanup",
		Short: "Enqueue idempotency key pruning",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return trigger(cmd, rt(), jobs.TaskIdempotencyCleanup)
		},
	})
	return cmd
}

func newMigrateCommand(rt func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime := rt()
			if runtime.Migrate == nil {
				return errNotConfigured
			}
			applied, err := runtime.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return err
			}
			for _, name := range applied {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func trigger(cmd *cobra.Command, runtime *Runtime, name string) error {
	if runtime.Queue == nil {
		return errNotConfigured
	}
	info, err := runtime.Queue.Trigger(cmd.Context(), name)
	if err != nil {
		return err
	}
	return printTask(cmd.OutOrStdout(), info.ID, info.Type)
}

func printTask(w io.Writer, id, taskType string) error {
	_, err := fmt.Fprintf(w, "enqueued %s (%s)\n", taskType, id)
	return err
}
