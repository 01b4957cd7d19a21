package main

import (
	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/tzconv"
)

type patternResult struct {
	Local tzconv.Pattern   `json:"local"`
	UTC   tzconv.Pattern   `json:"utc"`
	Shown []tzconv.Pattern `json:"shown,omitempty"`
	In    string           `json:"shown_in,omitempty"`
}

func newPatternCmd() *cobra.Command {
	var (
		day        int
		start, end string
		tz, to     string
	)
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Convert a local weekly window to UTC",
		Example: `  availctl pattern --day 1 --start 07:00 --end 09:00 --tz Asia/Manila
  availctl pattern --day 1 --start 07:00 --end 09:00 --tz Asia/Manila --to America/New_York`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			utc, err := tzconv.ConvertPatternToUTC(day, start, end, tz)
			if err != nil {
				return err
			}
			local, err := tzconv.ConvertPatternFromUTC(utc, tz)
			if err != nil {
				return err
			}
			out := patternResult{Local: local, UTC: utc}
			if to != "" {
				out.Shown, err = tzconv.ConvertPatternBetweenTimezones([]int{day}, start, end, tz, to)
				if err != nil {
					return err
				}
				out.In = to
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&day, "day", 0, "day of week, 0=Sunday")
	cmd.Flags().StringVar(&start, "start", "", "local start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "local end time HH:MM (24:00 allowed)")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "IANA timezone the window was entered in")
	cmd.Flags().StringVar(&to, "to", "", "also show the window in this timezone")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

type overrideResult struct {
	Local tzconv.Override `json:"local"`
	UTC   tzconv.Override `json:"utc"`
}

func newOverrideCmd() *cobra.Command {
	var date, start, end, tz string
	cmd := &cobra.Command{
		Use:     "override",
		Short:   "Convert a one-off local window to UTC",
		Example: `  availctl override --date 2024-03-10 --start 01:30 --end 03:30 --tz America/New_York`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			utc, err := tzconv.ConvertOverrideToUTC(date, start, end, tz)
			if err != nil {
				return err
			}
			local, err := tzconv.ConvertOverrideFromUTC(utc, tz)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), overrideResult{Local: local, UTC: utc})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "local date YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "local start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "local end time HH:MM")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "IANA timezone the window was entered in")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
