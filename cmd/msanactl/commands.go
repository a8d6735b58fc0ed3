package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/msana/internal/api"
	"github.com/matheus3301/msana/internal/drafts"
	"github.com/matheus3301/msana/internal/lock"
	"github.com/matheus3301/msana/internal/model"
	"github.com/matheus3301/msana/internal/tab"
	"github.com/matheus3301/msana/internal/tui/client"
	"github.com/spf13/cobra"
)

// PasswordEnv supplies the login password when --password is not given.
const PasswordEnv = "MSANA_PASSWORD"

func statusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the tab's account, network and queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				return o.emit(out, st, func(w io.Writer) { printStatus(w, st) })
			})
		},
	}
}

func printStatus(w io.Writer, st *api.StatusResponse) {
	account := "(none)"
	if st.Account != nil {
		account = fmt.Sprintf("%s (%s)", st.Account.Email, st.Account.Role)
	}
	lastSync := "never"
	if !st.LastSyncAt.IsZero() {
		lastSync = st.LastSyncAt.Local().Format(time.DateTime)
	}
	syncing := ""
	if st.IsSyncing {
		syncing = " (syncing)"
	}
	fmt.Fprintf(w, "Tab:       %s (%s)\n", st.Tab, st.TabID)
	fmt.Fprintf(w, "Account:   %s\n", account)
	fmt.Fprintf(w, "Network:   %s [%s]\n", st.Liveness, st.NetworkMode)
	fmt.Fprintf(w, "Pending:   %d%s\n", st.PendingCount, syncing)
	fmt.Fprintf(w, "Last sync: %s\n", lastSync)
	fmt.Fprintf(w, "Uptime:    %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Round(time.Second))
}

func loginCmd(o *options) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log the tab in and claim the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(PasswordEnv)
			}
			if password == "" {
				return fmt.Errorf("password required: use --password or %s", PasswordEnv)
			}
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.Login(ctx, args[0], password)
				if err != nil {
					return err
				}
				return o.emit(out, resp, func(w io.Writer) {
					fmt.Fprintf(w, "Logged in as %s (%s)\n", resp.User.Email, resp.User.Name)
				})
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (default $"+PasswordEnv+")")
	return cmd
}

func logoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.Logout(ctx)
				if err != nil {
					return err
				}
				return o.emit(out, resp, func(w io.Writer) {
					if resp.Email == "" {
						fmt.Fprintln(w, "Not logged in.")
						return
					}
					fmt.Fprintf(w, "Logged out %s\n", resp.Email)
				})
			})
		},
	}
}

func switchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <email>",
		Short: "Switch the tab to another cached account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.SwitchAccount(ctx, args[0])
				if err != nil {
					return err
				}
				if err := o.emit(out, resp, func(w io.Writer) {
					if resp.Success {
						fmt.Fprintf(w, "Switched to %s\n", args[0])
					}
				}); err != nil {
					return err
				}
				if !resp.Success {
					return errors.New(resp.Message)
				}
				return nil
			})
		},
	}
}

func accountsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts cached on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.ListAccounts(ctx)
				if err != nil {
					return err
				}
				return o.emit(out, resp, func(w io.Writer) { printAccounts(w, resp.Accounts, time.Now()) })
			})
		},
	}
}

func printAccounts(w io.Writer, accounts []model.AccountSummary, now time.Time) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No cached accounts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tEMAIL\tNAME\tROLE\tLAST USED\tTOKEN")
	for _, a := range accounts {
		marker := ""
		if a.Active {
			marker = "*"
		}
		token := "-"
		if !a.TokenExpiresAt.IsZero() {
			token = "valid"
			if now.After(a.TokenExpiresAt) {
				token = "expired"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, a.User.Email, a.User.Name, a.User.Role,
			a.LastUsed.Local().Format(time.DateTime), token)
	}
	_ = tw.Flush()
}

func invoiceCmd(o *options) *cobra.Command {
	parent := &cobra.Command{Use: "invoice", Short: "Create invoices"}

	var file, clearDraft string
	create := &cobra.Command{
		Use:   "create --file <invoice.json>",
		Short: "Submit an invoice, queuing it when the API is unreachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := readInvoice(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.CreateInvoice(ctx, &api.CreateInvoiceRequest{Invoice: *inv, ClearDraft: clearDraft})
				if err != nil {
					return err
				}
				return o.emit(out, resp, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %s\n", resp.InvoiceNo, resp.Message)
				})
			})
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "invoice JSON file, - for stdin")
	create.Flags().StringVar(&clearDraft, "clear-draft", "", "draft category to clear once the server accepts the invoice")
	_ = create.MarkFlagRequired("file")

	parent.AddCommand(create)
	return parent
}

// readInvoice loads an invoice from path, or from stdin when path is "-".
func readInvoice(path string, stdin io.Reader) (*model.Invoice, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var inv model.Invoice
	if err := json.NewDecoder(r).Decode(&inv); err != nil {
		return nil, fmt.Errorf("parse invoice: %w", err)
	}
	if err := inv.Normalize(); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func syncCmd(o *options) *cobra.Command {
	parent := &cobra.Command{Use: "sync", Short: "Replay or inspect the offline queue"}
	parent.AddCommand(
		&cobra.Command{
			Use:   "now",
			Short: "Replay queued invoices now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
					res, err := c.SyncNow(ctx)
					if err != nil {
						return err
					}
					return o.emit(out, res, func(w io.Writer) {
						if res.Message != "" {
							fmt.Fprintln(w, res.Message)
							return
						}
						fmt.Fprintf(w, "Synced: %d  Failed: %d\n", res.Synced, res.Failed)
						for _, e := range res.Errors {
							fmt.Fprintf(w, "  entry %d: %s\n", e.ID, e.Error)
						}
					})
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the queue state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
					st, err := c.SyncStatus(ctx)
					if err != nil {
						return err
					}
					return o.emit(out, st, func(w io.Writer) {
						fmt.Fprintf(w, "Pending: %d\n", st.PendingCount)
						fmt.Fprintf(w, "Syncing: %v\n", st.IsSyncing)
						if !st.LastSyncAt.IsZero() {
							fmt.Fprintf(w, "Last sync: %s\n", st.LastSyncAt.Local().Format(time.DateTime))
						}
					})
				})
			},
		},
	)
	return parent
}

func netCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "net <online|offline|auto>",
		Short:     "Force the tab online or offline, or return to probing",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{api.NetworkOnline, api.NetworkOffline, api.NetworkAuto},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.SetNetwork(ctx, args[0])
				if err != nil {
					return err
				}
				return o.emit(out, resp, func(w io.Writer) {
					fmt.Fprintf(w, "Network: %s [%s]\n", resp.Liveness, resp.Mode)
				})
			})
		},
	}
}

func draftCmd(o *options) *cobra.Command {
	var category string
	parent := &cobra.Command{Use: "draft", Short: "Manage the saved form draft"}
	parent.PersistentFlags().StringVar(&category, "category", drafts.CategoryPharmacy, "draft category")

	var file string
	save := &cobra.Command{
		Use:   "save --file <draft.json>",
		Short: "Save a draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				if err := c.SaveDraft(ctx, category, data); err != nil {
					return err
				}
				fmt.Fprintf(out, "Draft %q saved\n", category)
				return nil
			})
		},
	}
	save.Flags().StringVarP(&file, "file", "f", "-", "draft JSON file, - for stdin")

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.GetDraft(ctx, category)
				if err != nil {
					return err
				}
				if !resp.Found {
					return fmt.Errorf("no %q draft", category)
				}
				if o.jsonOut {
					return outputJSON(out, resp)
				}
				_, err = fmt.Fprintln(out, string(resp.Data))
				return err
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				if err := c.ClearDraft(ctx, category); err != nil {
					return err
				}
				fmt.Fprintf(out, "Draft %q cleared\n", category)
				return nil
			})
		},
	}

	parent.AddCommand(save, get, clearCmd)
	return parent
}

func productsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the product catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, func(ctx context.Context, c *client.Client, out io.Writer) error {
				resp, err := c.ListProducts(ctx)
				if err != nil {
					return err
				}
				return o.emit(out, resp, func(w io.Writer) {
					if resp.Cached {
						fmt.Fprintln(w, "(offline: showing cached catalog)")
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tSTOCK\tPRICE\tGST%")
					for _, p := range resp.Products {
						fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%g\n", p.ID, p.Name, p.Stock, p.SellingPrice, p.GST)
					}
					_ = tw.Flush()
				})
			})
		},
	}
}

// tabInfo is one row of the tabs listing.
type tabInfo struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

func tabsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tabs",
		Short: "List known tabs and whether they are running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := listTabs()
			if err != nil {
				return err
			}
			return o.emit(cmd.OutOrStdout(), infos, func(w io.Writer) {
				if len(infos) == 0 {
					fmt.Fprintln(w, "No tabs found.")
					return
				}
				for _, t := range infos {
					state := "closed"
					if t.Running {
						state = fmt.Sprintf("running (pid %d)", t.PID)
					}
					fmt.Fprintf(w, "%-20s %s\n", t.Name, state)
				}
			})
		},
	}
}

func listTabs() ([]tabInfo, error) {
	names, err := tab.List()
	if err != nil {
		return nil, err
	}
	infos := make([]tabInfo, 0, len(names))
	for _, name := range names {
		pid, held := lock.Holder(tab.Dir(name))
		infos = append(infos, tabInfo{Name: name, Running: held, PID: pid})
	}
	return infos, nil
}
