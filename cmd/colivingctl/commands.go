package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pavitra93/go-coliving-admin/shared/config"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/ledger"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
	"github.com/pavitra93/go-coliving-admin/shared/reporting"
	"github.com/pavitra93/go-coliving-admin/shared/store"
)

type options struct {
	format string
}

func (o *options) json() bool { return o.format == "json" }

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openRepository connects using the DB_* environment
func openRepository(ctx context.Context, migrate bool) (store.Repository, func(), error) {
	return store.Open(ctx, config.GetDatabaseConfig(), migrate)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes for members and failed notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.GetDatabaseConfig()

			_, closeRepo, err := store.Open(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer closeRepo()

			if cfg.Driver != config.DriverMongo {
				db, err := config.ConnectDatabase(cfg)
				if err != nil {
					return err
				}
				if err := notify.NewDeadLetters(db).Migrate(); err != nil {
					return fmt.Errorf("failed to migrate failed notifications: %w", err)
				}
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", cfg.Driver)
			return nil
		},
	}
}

func inventoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Print the room layout and bed capacities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := config.LoadInventory()
			if err != nil {
				return err
			}
			return printInventory(cmd.OutOrStdout(), inv, opts)
		},
	}
}

func printInventory(out io.Writer, inv *inventory.Inventory, opts *options) error {
	if opts.json() {
		floors := make(map[inventory.Floor][]string, len(inv.Floors()))
		for _, f := range inv.Floors() {
			floors[f] = inv.Rooms(f)
		}
		capacities := make(map[inventory.ShareType]int, len(inventory.ShareTypes))
		for _, t := range inventory.ShareTypes {
			capacities[t], _ = inv.Capacity(t)
		}
		return writeJSON(out, map[string]interface{}{
			"floors":      floors,
			"capacities":  capacities,
			"total_rooms": inv.TotalRooms(),
		})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOOR\tLABEL\tROOMS")
	for _, f := range inv.Floors() {
		rooms := inv.Rooms(f)
		fmt.Fprintf(tw, "%s\t%s\t%d\n", f, inventory.FloorLabel(f), len(rooms))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TYPE\tBEDS")
	for _, t := range inventory.ShareTypes {
		c, _ := inv.Capacity(t)
		fmt.Fprintf(tw, "%s\t%d\n", t, c)
	}
	fmt.Fprintf(tw, "\nTotal rooms: %d\n", inv.TotalRooms())
	return tw.Flush()
}

// snapshot loads active members and computes occupancy
func snapshot(ctx context.Context, repo store.Repository, inv *inventory.Inventory) (*occupancy.Snapshot, error) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	members := store.NewMemberStore(repo, occupancy.NewResolver(inv), nil, nil, logrus.NewEntry(l))
	return members.Snapshot(ctx)
}

func reportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize room occupancy per floor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := config.LoadInventory()
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeRepo()
			return runReport(cmd.Context(), cmd.OutOrStdout(), repo, inv, opts)
		},
	}
}

func runReport(ctx context.Context, out io.Writer, repo store.Repository, inv *inventory.Inventory, opts *options) error {
	snap, err := snapshot(ctx, repo, inv)
	if err != nil {
		return err
	}
	building := reporting.BuildingSummary(inv, snap)
	floors := reporting.OrderedFloorSummary(inv, snap)

	if opts.json() {
		return writeJSON(out, map[string]interface{}{
			"generated_at": snap.GeneratedAt,
			"building":     building,
			"floors":       floors,
		})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOOR\tROOMS\tFILLED\tAVAILABLE\tBEDS\tFREE BEDS")
	for _, f := range floors {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			f.Label, f.TotalRooms, f.FilledRooms, f.AvailableRooms, f.TotalBeds, f.AvailableBeds)
	}
	fmt.Fprintf(tw, "Building\t%d\t%d\t%d\t\t\n", building.TotalRooms, building.FilledRooms, building.AvailableRooms)
	return tw.Flush()
}

func statsCmd(opts *options) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show rent collection for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := models.MonthKeyOf(time.Now())
			if month != "" {
				var err error
				if key, err = models.ParseMonthKey(month); err != nil {
					return err
				}
			}
			repo, closeRepo, err := openRepository(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeRepo()
			return runStats(cmd.Context(), cmd.OutOrStdout(), repo, key, opts)
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YEAR-MONTH, e.g. 2024-3 (default current month)")
	return cmd
}

func runStats(ctx context.Context, out io.Writer, repo store.Repository, key models.MonthKey, opts *options) error {
	members, err := repo.FindActive(ctx)
	if err != nil {
		return err
	}
	stats := ledger.MonthlyStatistics(members, key)

	if opts.json() {
		return writeJSON(out, stats)
	}

	fmt.Fprintf(out, "%s\n", key.Label())
	fmt.Fprintf(out, "Members:    %d (%d paid, %d unpaid)\n", stats.TotalMembers, stats.PaidMembers, stats.UnpaidMembers)
	fmt.Fprintf(out, "Due:        Rs.%d\n", stats.TotalAmount)
	fmt.Fprintf(out, "Collected:  Rs.%d (%.1f%%)\n", stats.PaidAmount, stats.CollectionRate*100)
	fmt.Fprintf(out, "Pending:    Rs.%d\n\n", stats.UnpaidAmount)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tMEMBERS\tPAID\tAMOUNT")
	for _, t := range inventory.ShareTypes {
		ts := stats.RoomTypeStats[t]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", t, ts.Total, ts.Paid, ts.Amount)
	}
	return tw.Flush()
}

func exportCmd(opts *options) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the room occupancy table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := config.LoadInventory()
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeRepo()

			out := cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runExport(cmd.Context(), out, repo, inv, opts)
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "write to this file instead of stdout")
	return cmd
}

func runExport(ctx context.Context, out io.Writer, repo store.Repository, inv *inventory.Inventory, opts *options) error {
	snap, err := snapshot(ctx, repo, inv)
	if err != nil {
		return err
	}
	rows := reporting.ExportRows(inv, snap)
	if opts.json() {
		return writeJSON(out, rows)
	}
	return reporting.WriteCSV(out, rows)
}
