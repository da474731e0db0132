package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"detailinfra/internal/classification"
	"detailinfra/internal/pricing"
	"detailinfra/internal/vehicle"
)

func classifyCmd(opts *rootOptions) *cobra.Command {
	var (
		year     int
		override string
		save     bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "classify MAKE MODEL",
		Short: "Classify a vehicle by make and model",
		Long: `Classify a vehicle using persisted overrides, the reference dataset and
keyword rules. With --save the result is written to the classification
table, or queued locally when the database is unreachable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := classification.ClassifyRequest{Make: args[0], Model: args[1]}
			if year > 0 {
				req.Year = vehicle.IntPtr(year)
			}
			if override != "" {
				c, ok := vehicle.ParseCategory(override)
				if !ok {
					return fmt.Errorf("unknown category %q", override)
				}
				req.Override = c
			}

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if save {
				res, err := a.Service.Save(cmd.Context(), opts.actor(), classification.SaveRequest{ClassifyRequest: req})
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(out).Encode(res)
				}
				fmt.Fprintf(out, "%s %s: %s (luxury: %t)\n%s\n",
					res.Row.Make, res.Row.Model, res.Row.Category, res.Row.Luxury, res.Message)
				return nil
			}

			res, err := a.Service.Classify(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintf(out, "%s %s: %s (luxury: %t, tier: %s)\n",
				res.Make, res.Model, res.Category, res.Luxury, pricing.TierFor(res.Category, res.Luxury))
			fmt.Fprintf(out, "source: %s\n%s\n", res.Source, res.Rationale)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "model year")
	cmd.Flags().StringVar(&override, "category", "", "force a category ("+categoryNames()+")")
	cmd.Flags().BoolVar(&save, "save", false, "persist the classification (admin only)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func estimateCmd(opts *rootOptions) *cobra.Command {
	var (
		addOns []string
		miles  float64
		tier   string
		year   int
	)
	cmd := &cobra.Command{
		Use:   "estimate SERVICE [MAKE MODEL]",
		Short: "Price a detailing job",
		Long: `Price a service package with optional add-ons and the destination fee.
Give either --tier or a vehicle make and model to classify.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if miles < 0 {
				return fmt.Errorf("miles must be non-negative")
			}
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			catalog := a.Service.Catalog()
			if _, ok := catalog.Service(args[0]); !ok {
				return fmt.Errorf("unknown service %q", args[0])
			}

			if tier != "" {
				t, ok := pricing.ParseTier(tier)
				if !ok {
					return fmt.Errorf("unknown tier %q", tier)
				}
				fmt.Fprintln(out, catalog.Estimate(args[0], addOns, t, miles).Summary())
				return nil
			}
			if len(args) != 3 {
				return fmt.Errorf("give --tier or MAKE and MODEL")
			}
			req := classification.EstimateRequest{
				ClassifyRequest: classification.ClassifyRequest{Make: args[1], Model: args[2]},
				ServiceID:       args[0],
				AddOnIDs:        addOns,
				Miles:           miles,
			}
			if year > 0 {
				req.Year = vehicle.IntPtr(year)
			}
			q, err := a.Service.EstimateVehicle(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s: %s (luxury: %t)\n", q.Classification.Make, q.Classification.Model,
				q.Classification.Category, q.Classification.Luxury)
			fmt.Fprintln(out, q.Summary)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&addOns, "add-on", nil, "add-on id (repeatable)")
	cmd.Flags().Float64Var(&miles, "miles", 0, "distance to the job")
	cmd.Flags().StringVar(&tier, "tier", "", "price tier (compact, midsize, truck, luxury)")
	cmd.Flags().IntVar(&year, "year", 0, "model year")
	return cmd
}

func categoryNames() string {
	names := make([]string, len(vehicle.Categories))
	for i, c := range vehicle.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
