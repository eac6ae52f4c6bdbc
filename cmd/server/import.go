package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/feed"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load reference data from feed files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "countries FILE",
			Short: "Import countries from a JSON feed",
			Args:  cobra.ExactArgs(1),
			RunE:  runImportCountries,
		},
		&cobra.Command{
			Use:   "lumpsums FILE",
			Short: "Import lump sums from a JSON feed or an .xlsx sheet",
			Args:  cobra.ExactArgs(1),
			RunE:  runImportLumpSums,
		},
		&cobra.Command{
			Use:   "rates FILE",
			Short: "Import one month of exchange rates per euro",
			Args:  cobra.ExactArgs(1),
			RunE:  runImportRates,
		},
	)
	return cmd
}

func runImportCountries(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := feed.ParseCountriesJSON(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	countries := make([]*entity.Country, 0, len(entries))
	for _, e := range entries {
		country, err := e.Country()
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		countries = append(countries, country)
	}

	c, logger, err := openContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Services().Countries.ImportCountries(cmd.Context(), countries)
	if err != nil {
		return err
	}
	logger.Info("Countries imported", zap.String("file", args[0]), zap.Int("count", n))
	return nil
}

func runImportLumpSums(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var entries []feed.LumpSumEntry
	if strings.EqualFold(filepath.Ext(args[0]), ".xlsx") {
		entries, err = feed.ParseLumpSumsXLSX(f)
	} else {
		entries, err = feed.ParseLumpSumsJSON(f)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	sets, err := feed.GroupByCountry(entries)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	c, logger, err := openContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Services().Countries.ImportLumpSums(cmd.Context(), sets)
	if err != nil {
		return err
	}
	logger.Info("Lump sums imported", zap.String("file", args[0]), zap.Int("count", n))
	return nil
}

func runImportRates(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	month, perEuro, err := feed.ParseRatesJSON(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	c, logger, err := openContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Repositories().Rate.SaveMonth(cmd.Context(), month, perEuro); err != nil {
		return err
	}
	logger.Info("Rates imported",
		zap.String("month", month.Format("2006-01")),
		zap.Int("currencies", len(perEuro)))
	return nil
}
