// Command certhub acquires Brazilian tax clearance certificates, keeps them
// reconciled across cooperating instances and alerts on upcoming expiry.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"certhub/internal/acquire"
	"certhub/internal/domain"
	"certhub/internal/platform/httpserver"
	httptransport "certhub/internal/transport/http"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "certhub",
		Short:         "Tax clearance certificate manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newAcquireCmd(),
		newSyncCmd(),
		newListCmd(),
		newDeleteCmd(),
		newNotifyCmd(),
	)
	return root
}

// withApp builds the service graph, runs fn, and tears everything down.
func withApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(ctx, a)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: withApp(func(ctx context.Context, a *app) error {
			orchestrator, err := a.buildOrchestrator()
			if err != nil {
				return err
			}

			handler := httptransport.NewHandler(a.auth, a.engine, orchestrator, a.notifier, a.log)
			srv := httpserver.New(a.cfg.Server.Addr, httptransport.NewRouter(handler),
				a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout)

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("http server listening", "addr", a.cfg.Server.Addr)
				errCh <- srv.ListenAndServe()
			}()

			// Startup sweep, guarded like any other.
			go func() {
				if out, err := a.notifier.Run(ctx, false); err != nil {
					a.log.Warn("startup notification sweep", "error", err)
				} else if out.Skipped != "" {
					a.log.Debug("startup sweep skipped", "reason", out.Skipped)
				}
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
}

func newAcquireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acquire <taxpayer-id>",
		Short: "Acquire all five certificates for one taxpayer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.NormalizeTaxpayerID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				orchestrator, err := a.buildOrchestrator()
				if err != nil {
					return err
				}

				outcomes := orchestrator.AcquireAllStream(ctx, id, func(ev acquire.ProgressEvent) {
					fmt.Printf("%s\t%s\t%s\n", ev.Type, ev.Stage, ev.Message)
				})
				failures := 0
				for _, out := range outcomes {
					if out.Success {
						fmt.Printf("ok\t%s\n", out.Type.DisplayName())
						if out.Record != nil {
							if err := a.notifier.AnnounceIssuance(ctx, *out.Record); err != nil {
								a.log.Warn("issuance mail deferred", "key", out.Record.Key().String(), "error", err)
							}
						}
						continue
					}
					failures++
					fmt.Printf("failed\t%s\t%s\n", out.Type.DisplayName(), out.Reason)
				}
				if failures > 0 {
					return fmt.Errorf("%d of %d documents failed", failures, len(outcomes))
				}
				return nil
			})(cmd, args)
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local records with the shared store",
		RunE: withApp(func(ctx context.Context, a *app) error {
			records, err := a.engine.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d records after reconciliation\n", len(records))
			return nil
		}),
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored certificates",
		RunE: withApp(func(ctx context.Context, a *app) error {
			records, err := a.engine.Run(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAXPAYER\tDOCUMENT\tEXPIRES\tCOMPANY")
			for _, rec := range records {
				name := rec.TradeName
				if name == "" {
					name = rec.LegalName
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					rec.TaxpayerID.Formatted(), rec.DocumentType.DisplayName(), rec.ExpiresOn.String(), name)
			}
			return w.Flush()
		}),
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <taxpayer-id> <document-type>",
		Short: "Delete one certificate everywhere",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.NormalizeTaxpayerID(args[0])
			if err != nil {
				return err
			}
			docType := domain.DocumentType(args[1])
			if !docType.IsValid() {
				return fmt.Errorf("unknown document type %q", args[1])
			}
			return withApp(func(ctx context.Context, a *app) error {
				return a.engine.DeleteEverywhere(ctx, domain.RecordKey{TaxpayerID: id, DocumentType: docType})
			})(cmd, args)
		},
	}
}

func newNotifyCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Run the expiry sweep and send the daily alert",
		RunE: withApp(func(ctx context.Context, a *app) error {
			out, err := a.notifier.Run(ctx, force)
			if err != nil {
				return err
			}
			switch {
			case out.Skipped != "":
				fmt.Println("skipped:", out.Skipped)
			case out.Alerted > 0:
				fmt.Printf("alerted on %d expiring certificate(s)\n", out.Alerted)
			default:
				fmt.Println("nothing close to expiry")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass the once-per-day guard")
	return cmd
}
